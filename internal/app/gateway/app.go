/**
 * 网关应用
 * @date 2026.10.16
 * @description 装配外部依赖与模块、注册路由并运行HTTP服务。
 *              配置目录变更时热更新日志级别、调试开关与注册开关。
 * @func NewApp, App.Run, App.Close
 */
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"raggate/internal/app/gateway/router"
	"raggate/internal/app/gateway/setup"
	"raggate/internal/config"
	"raggate/internal/handler/common"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/mq"
)

const shutdownTimeout = 5 * time.Second

// Options 运行选项
type Options struct {
	ConfigPath string // 配置目录，热更新时监听该目录
	Env        string // 环境标识
	Watch      bool   // 是否监听配置变更
}

// App 网关应用
type App struct {
	cfg     *config.Config
	opts    Options
	infra   *setup.Infra
	modules *setup.Modules
	router  *router.Router
	watcher *config.ConfigWatcher
}

// NewApp 建立连接、装配模块并注册路由
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	gin.SetMode(cfg.Server.Mode)
	common.SetDebug(cfg.App.Debug)

	infra, err := setup.BuildInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}
	modules, err := setup.BuildModules(infra, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	r := router.NewRouter(cfg, modules, router.NewHealthChecker(infra.DB, infra.Redis))
	r.SetupRoutes()

	return &App{cfg: cfg, opts: opts, infra: infra, modules: modules, router: r}, nil
}

// Handler HTTP处理器，测试中可直接配合 httptest 使用
func (a *App) Handler() http.Handler {
	return a.router.GetEngine()
}

// Modules 已装配的模块
func (a *App) Modules() *setup.Modules {
	return a.modules
}

// Run 启动HTTP服务并阻塞到 ctx 结束，随后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if a.opts.Watch {
		if err := a.startWatcher(); err != nil {
			logger.LogSystemEvent("config", "watch_failed", err.Error(), logrus.WarnLevel, nil)
		}
	}

	// 内存队列只能在本进程内消费
	if w := a.modules.RAGFlow.Worker; w != nil && a.cfg.Queue.Backend == mq.BackendMemory {
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.LogSystemEvent("worker", "stopped_with_error", err.Error(), logrus.ErrorLevel, nil)
			}
		}()
	}

	srv := &http.Server{
		Addr:           a.cfg.Server.GetAddress(),
		Handler:        a.Handler(),
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		IdleTimeout:    a.cfg.Server.IdleTimeout,
		MaxHeaderBytes: a.cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogSystemEvent("server", "start", "http server listening", logrus.InfoLevel, map[string]interface{}{
			"addr": srv.Addr,
			"mode": a.cfg.Server.Mode,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.LogSystemEvent("server", "shutdown", "shutting down http server", logrus.InfoLevel, nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) startWatcher() error {
	w, err := config.NewConfigWatcher(a.opts.ConfigPath, a.opts.Env)
	if err != nil {
		return err
	}
	w.AddCallback(logger.ReloadCallback)
	w.AddCallback(func(_, newConfig *config.Config) error {
		common.SetDebug(newConfig.App.Debug)
		return nil
	})
	if err := w.Start(); err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// Close 释放全部资源
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	a.modules.Close()
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}
