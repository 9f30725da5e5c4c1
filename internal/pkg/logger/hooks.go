package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"raggate/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileHook 按日志条目的 type 字段写入不同的滚动文件
type FileHook struct {
	logConfig *config.LogConfig
	writers   map[LogType]io.Writer
	formatter logrus.Formatter
	mutex     sync.Mutex
}

// NewFileHook 创建 FileHook，主日志文件为 cfg.FilePath，其余类型文件与之同目录
func NewFileHook(cfg *config.LogConfig) *FileHook {
	hook := &FileHook{
		logConfig: cfg,
		writers:   make(map[LogType]io.Writer),
		formatter: jsonFormatter(),
	}
	if cfg.FilePath != "" {
		hook.writers[defaultLog] = hook.rolling(cfg.FilePath)
	}
	return hook
}

// Levels 返回此Hook关心的所有日志级别
func (hook *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 在日志触发时执行
func (hook *FileHook) Fire(entry *logrus.Entry) error {
	logType := defaultLog
	switch t := entry.Data["type"].(type) {
	case LogType:
		logType = t
	case string:
		logType = LogType(t)
	}

	formatted, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.mutex.Lock()
	defer hook.mutex.Unlock()

	writer := hook.writerFor(logType)
	if writer == nil {
		return nil
	}
	_, err = writer.Write(formatted)
	return err
}

// writerFor 调用方需持有 mutex
func (hook *FileHook) writerFor(logType LogType) io.Writer {
	if writer, ok := hook.writers[logType]; ok {
		return writer
	}
	if !logType.valid() || hook.logConfig.FilePath == "" {
		return hook.writers[defaultLog]
	}

	filename := filepath.Join(filepath.Dir(hook.logConfig.FilePath), string(logType)+".log")
	writer := hook.rolling(filename)
	hook.writers[logType] = writer
	return writer
}

func (hook *FileHook) rolling(filename string) io.Writer {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    hook.logConfig.MaxSize,
		MaxBackups: hook.logConfig.MaxBackups,
		MaxAge:     hook.logConfig.MaxAge,
		Compress:   hook.logConfig.Compress,
	}
}
