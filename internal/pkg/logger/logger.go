/**
 * 模块:日志管理器
 * @date 2026.10.16
 * @description 基于 logrus 的全局日志实例。output=file 时主输出丢弃，由 FileHook 按 type 字段分流到不同文件;
 *              stdout/stderr 时直接写控制台。支持配置热更新时调整级别与格式。
 * @func InitLogger, UpdateConfig, Debug/Info/Warn/Error(f), WithField(s)
 */
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"raggate/internal/config"

	"github.com/sirupsen/logrus"
)

// 统一时间戳格式，精确到毫秒
const timestampFormat = "2006-01-02 15:04:05.000"

// LoggerManager 日志管理器
type LoggerManager struct {
	logger *logrus.Logger
	config *config.LogConfig
}

// LoggerInstance 全局日志实例
var LoggerInstance *LoggerManager

// InitLogger 初始化日志管理器
func InitLogger(cfg *config.LogConfig) (*LoggerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		logger.Warnf("Invalid log level '%s', using 'info' as default", cfg.Level)
	}
	logger.SetLevel(level)

	if err := setLogFormatter(logger, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log formatter: %w", err)
	}

	setLogOutput(logger, cfg)

	if cfg.Output == "file" {
		logger.AddHook(NewFileHook(cfg))
	}

	logger.SetReportCaller(cfg.Caller)

	lm := &LoggerManager{
		logger: logger,
		config: cfg,
	}
	LoggerInstance = lm

	return lm, nil
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
			logrus.FieldKeyFunc:  "function",
			logrus.FieldKeyFile:  "file",
		},
	}
}

// setLogFormatter 设置日志格式化器
func setLogFormatter(logger *logrus.Logger, cfg *config.LogConfig) error {
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(jsonFormatter())
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return nil
}

// setLogOutput 设置日志输出目标
// file 模式下 debug 级别仍同时打到控制台，方便本地排查
func setLogOutput(logger *logrus.Logger, cfg *config.LogConfig) {
	switch cfg.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "file":
		if strings.ToLower(cfg.Level) == "debug" {
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(io.Discard)
		}
	default:
		logger.SetOutput(os.Stdout)
	}
}

// GetLogger 获取logrus实例
func (lm *LoggerManager) GetLogger() *logrus.Logger {
	return lm.logger
}

// UpdateConfig 运行时更新日志级别、格式与调用者信息
// 输出目标变更需要重启进程
func (lm *LoggerManager) UpdateConfig(newCfg *config.LogConfig) error {
	if newCfg == nil {
		return fmt.Errorf("new config cannot be nil")
	}

	if newCfg.Level != lm.config.Level {
		level, err := logrus.ParseLevel(newCfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		lm.logger.SetLevel(level)
		lm.logger.Infof("Log level updated from %s to %s", lm.config.Level, newCfg.Level)
	}

	if newCfg.Format != lm.config.Format {
		if err := setLogFormatter(lm.logger, newCfg); err != nil {
			return fmt.Errorf("failed to update log formatter: %w", err)
		}
	}

	if newCfg.Caller != lm.config.Caller {
		lm.logger.SetReportCaller(newCfg.Caller)
	}

	if newCfg.Output != lm.config.Output {
		lm.logger.Warnf("Log output change %s -> %s takes effect after restart", lm.config.Output, newCfg.Output)
		newCfg.Output = lm.config.Output
	}

	lm.config = newCfg
	return nil
}

// ReloadCallback 供 config.ConfigWatcher 注册的日志热更新回调
func ReloadCallback(_, newConfig *config.Config) error {
	if LoggerInstance == nil || newConfig == nil {
		return nil
	}
	cfg := newConfig.Log
	return LoggerInstance.UpdateConfig(&cfg)
}

func entry() *logrus.Entry {
	if LoggerInstance != nil {
		return logrus.NewEntry(LoggerInstance.logger)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Debug 记录调试日志
func Debug(args ...interface{}) { entry().Debug(args...) }

// Debugf 记录格式化调试日志
func Debugf(format string, args ...interface{}) { entry().Debugf(format, args...) }

// Info 记录信息日志
func Info(args ...interface{}) { entry().Info(args...) }

// Infof 记录格式化信息日志
func Infof(format string, args ...interface{}) { entry().Infof(format, args...) }

// Warn 记录警告日志
func Warn(args ...interface{}) { entry().Warn(args...) }

// Warnf 记录格式化警告日志
func Warnf(format string, args ...interface{}) { entry().Warnf(format, args...) }

// Error 记录错误日志
func Error(args ...interface{}) { entry().Error(args...) }

// Errorf 记录格式化错误日志
func Errorf(format string, args ...interface{}) { entry().Errorf(format, args...) }

// Fatalf 记录致命错误并退出
func Fatalf(format string, args ...interface{}) { entry().Fatalf(format, args...) }

// WithField 添加单个字段
func WithField(key string, value interface{}) *logrus.Entry {
	return entry().WithField(key, value)
}

// WithFields 添加多个字段
func WithFields(fields logrus.Fields) *logrus.Entry {
	return entry().WithFields(fields)
}
