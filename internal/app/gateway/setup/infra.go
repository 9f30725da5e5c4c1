package setup

import (
	"context"
	"errors"
	"fmt"

	"raggate/internal/config"
	"raggate/internal/pkg/database"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/mq"
	"raggate/internal/pkg/storage"
)

// BuildInfra 按配置建立数据库、Redis、对象存储与队列连接
// 任一步失败时已建立的连接会被关闭
func BuildInfra(ctx context.Context, cfg *config.Config) (_ *Infra, err error) {
	logger.WithFields(map[string]interface{}{
		"operation": "setup",
		"option":    "setup.infra.begin",
		"func_name": "setup.infra.BuildInfra",
		"driver":    cfg.Database.Driver,
	}).Info("开始建立外部依赖连接")

	infra := &Infra{}
	defer func() {
		if err != nil {
			_ = infra.Close()
		}
	}()

	if infra.DB, err = database.Open(&cfg.Database); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Database.Redis.Enabled {
		if infra.Redis, err = database.NewRedisConnection(&cfg.Database.Redis); err != nil {
			return nil, err
		}
	}

	if infra.Store, err = storage.New(ctx, &cfg.Storage); err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	if infra.Store != nil {
		if err = infra.Store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", infra.Store.Bucket(), err)
		}
	}

	if infra.Queue, err = mq.New(ctx, &cfg.Queue); err != nil {
		return nil, fmt.Errorf("init queue: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"operation": "setup",
		"option":    "setup.infra.done",
		"func_name": "setup.infra.BuildInfra",
		"redis":     infra.Redis != nil,
		"storage":   infra.Store != nil,
		"queue":     infra.Queue != nil,
	}).Info("外部依赖连接建立完成")
	return infra, nil
}

// Close 关闭全部连接
func (i *Infra) Close() error {
	var errs []error
	if i.Queue != nil {
		errs = append(errs, i.Queue.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, database.Close(i.DB))
	}
	return errors.Join(errs...)
}
