package crud

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx 在事务中执行 fn，事务通过 ctx 传递给其中的服务调用。
// ctx 中已有事务时直接复用，只有最外层负责提交或回滚。
func WithTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// TxFrom 取出 ctx 中的事务
func TxFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn ctx 中有事务时返回事务，否则返回 db
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}
