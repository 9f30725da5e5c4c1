/**
 * 模块:数据库连接
 * @date 2026.10.16
 * @description 按 database.driver 打开 MySQL 或 SQLite。gorm 开启 TranslateError，
 *              唯一键冲突统一表现为 gorm.ErrDuplicatedKey。SQL 日志写入 logrus。
 * @func Open, Ping, Close
 */
package database

import (
	"context"
	"fmt"
	"time"

	"raggate/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 根据配置打开数据库
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "mysql", "":
		return NewMySQLConnection(&cfg.MySQL)
	case "sqlite":
		return NewSQLiteConnection(&cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func gormConfig(level string) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			logrus.WithField("component", "gorm"),
			gormlogger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  parseGormLogLevel(level),
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

func parseGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// Ping 就绪检查
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
