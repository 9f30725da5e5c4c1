/**
 * 服务层:通用CRUD服务
 * @date 2026.10.16
 * @description 在通用仓库之上统一事务边界与创建前检查。
 *              commit=true 且上下文中没有事务时，每次调用独立提交；
 *              上下文中已有事务(WithTx)时一律加入该事务，由最外层提交。
 * @func
 * 	1.New 构造时校验依赖
 * 	2.Create / Update / Delete 写操作
 * 	3.GetByPK / GetByPKs / GetPaged / GetAll 读操作
 */
package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"raggate/internal/repo/mysql"
)

// CheckFunc 创建前检查，返回错误则中止创建
type CheckFunc func(ctx context.Context, db *gorm.DB, data map[string]interface{}) error

// Service 通用服务
type Service[T any] struct {
	db                *gorm.DB
	repo              *mysql.Repository[T]
	preload           []string
	checkBeforeCreate CheckFunc
}

// Option 服务选项
type Option[T any] func(*Service[T])

// WithPreload detail/preload 查询时加载的关联
func WithPreload[T any](associations ...string) Option[T] {
	return func(s *Service[T]) { s.preload = append(s.preload, associations...) }
}

// WithCheckBeforeCreate 设置创建前检查
func WithCheckBeforeCreate[T any](fn CheckFunc) Option[T] {
	return func(s *Service[T]) { s.checkBeforeCreate = fn }
}

// New 创建通用服务，db 与 repo 不能为空
func New[T any](db *gorm.DB, repo *mysql.Repository[T], opts ...Option[T]) (*Service[T], error) {
	if db == nil {
		return nil, errors.New("crud service requires a database handle")
	}
	if repo == nil {
		return nil, errors.New("crud service requires a repository")
	}
	s := &Service[T]{db: db, repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Repo 底层仓库
func (s *Service[T]) Repo() *mysql.Repository[T] { return s.repo }

// DB 当前上下文应使用的连接：事务中返回事务，否则返回根连接
func (s *Service[T]) DB(ctx context.Context) *gorm.DB {
	return Conn(ctx, s.db)
}

// Preload detail 查询加载的关联
func (s *Service[T]) Preload() []string { return s.preload }

func (s *Service[T]) preloadOpt(preload bool) mysql.QueryOption {
	if !preload {
		return mysql.WithPreload()
	}
	return mysql.WithPreload(s.preload...)
}

// run 按 commit 语义选择执行连接
func (s *Service[T]) run(ctx context.Context, commit bool, fn func(ctx context.Context, db *gorm.DB) error) error {
	if tx, ok := TxFrom(ctx); ok {
		return fn(ctx, tx)
	}
	if commit {
		return WithTx(ctx, s.db, func(ctx context.Context) error {
			tx, _ := TxFrom(ctx)
			return fn(ctx, tx)
		})
	}
	return fn(ctx, s.db)
}

// CheckBeforeCreate 执行创建前检查，未设置时直接通过
func (s *Service[T]) CheckBeforeCreate(ctx context.Context, data map[string]interface{}) error {
	if s.checkBeforeCreate == nil {
		return nil
	}
	return s.checkBeforeCreate(ctx, s.DB(ctx), data)
}

// Create 创建记录，输入中不属于模型列的键被丢弃
func (s *Service[T]) Create(ctx context.Context, data map[string]interface{}, commit bool) (*T, error) {
	if err := s.CheckBeforeCreate(ctx, data); err != nil {
		return nil, err
	}
	obj, err := s.repo.Build(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, obj, commit)
}

// Save 持久化已构造好的对象，独立提交时重新读取以拿到数据库生成的字段
func (s *Service[T]) Save(ctx context.Context, obj *T, commit bool) (*T, error) {
	_, joined := TxFrom(ctx)
	err := s.run(ctx, commit, func(ctx context.Context, db *gorm.DB) error {
		return s.repo.Create(ctx, db, obj)
	})
	if err != nil {
		return nil, err
	}
	if commit && !joined {
		return s.repo.GetByPK(ctx, s.db, s.repo.PKValue(ctx, obj), s.preloadOpt(true))
	}
	return obj, nil
}

// Update 局部更新，只处理 data 中出现的键
func (s *Service[T]) Update(ctx context.Context, pk interface{}, data map[string]interface{}, commit bool) (*T, error) {
	var out *T
	err := s.run(ctx, commit, func(ctx context.Context, db *gorm.DB) error {
		obj, err := s.repo.GetByPK(ctx, db, pk)
		if err != nil {
			return err
		}
		out, err = s.repo.Update(ctx, db, obj, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 删除记录，不存在返回 NotFound
func (s *Service[T]) Delete(ctx context.Context, pk interface{}, commit bool) (*T, error) {
	var out *T
	err := s.run(ctx, commit, func(ctx context.Context, db *gorm.DB) error {
		var err error
		out, err = s.repo.Delete(ctx, db, pk)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByPK 按主键查询，preload 为 true 时加载配置的关联
func (s *Service[T]) GetByPK(ctx context.Context, pk interface{}, preload bool) (*T, error) {
	return s.repo.GetByPK(ctx, s.DB(ctx), pk, s.preloadOpt(preload))
}

// GetByPKs 批量按主键查询
func (s *Service[T]) GetByPKs(ctx context.Context, pks []interface{}, preload bool) ([]T, error) {
	return s.repo.GetByPKs(ctx, s.DB(ctx), pks, s.preloadOpt(preload))
}

// GetPaged 分页查询，detail 为 true 时加载配置的关联
func (s *Service[T]) GetPaged(ctx context.Context, q mysql.PageQuery, detail bool) ([]T, int64, error) {
	if detail {
		q.Preload = append(append([]string{}, q.Preload...), s.preload...)
	}
	return s.repo.GetPaged(ctx, s.DB(ctx), q)
}

// GetAll 全量查询
func (s *Service[T]) GetAll(ctx context.Context) ([]T, error) {
	return s.repo.GetAll(ctx, s.DB(ctx))
}
