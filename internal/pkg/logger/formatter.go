// 分类日志记录函数
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampFormat)
}

// NowFormatted 返回当前时间的格式化字符串
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogType 日志类型，决定 FileHook 写入哪个文件
type LogType string

const (
	defaultLog LogType = "default"
	// AccessLog 访问日志
	AccessLog LogType = "access"
	// BusinessLog 业务日志(注册、登录、批量操作)
	BusinessLog LogType = "business"
	// ErrorLog 错误日志
	ErrorLog LogType = "error"
	// SystemLog 系统日志(启动、关闭、组件状态)
	SystemLog LogType = "system"
	// AuditLog 审计日志(权限变更、用户禁用删除)
	AuditLog LogType = "audit"
	// UpstreamLog 上游 RAGFlow 调用日志
	UpstreamLog LogType = "upstream"
)

func (t LogType) valid() bool {
	switch t {
	case AccessLog, BusinessLog, ErrorLog, SystemLog, AuditLog, UpstreamLog:
		return true
	}
	return false
}

func merge(fields logrus.Fields, extra map[string]interface{}) logrus.Fields {
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string, userID uint) {
	entry().WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"user_id":       userID,
		"request_id":    requestID,
		"request_size":  c.Request.ContentLength,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogBusinessOperation 记录业务操作日志，result 非 success 时记为 warn
func LogBusinessOperation(operation string, userID uint, username, clientIP, requestID, result, message string, extraFields map[string]interface{}) {
	e := entry().WithFields(merge(logrus.Fields{
		"type":       BusinessLog,
		"operation":  operation,
		"user_id":    userID,
		"username":   username,
		"client_ip":  clientIP,
		"result":     result,
		"detail":     message,
		"request_id": requestID,
	}, extraFields))

	if result == "success" {
		e.Info(fmt.Sprintf("Business operation: %s", operation))
	} else {
		e.Warn(fmt.Sprintf("Business operation failed: %s", operation))
	}
}

func requestFields(logType LogType, requestID string, userID uint, clientIP, path, method string) logrus.Fields {
	return logrus.Fields{
		"type":       logType,
		"request_id": requestID,
		"user_id":    userID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}
}

// LogError 记录错误日志
func LogError(err error, requestID string, userID uint, clientIP, path, method string, extraFields map[string]interface{}) {
	if err == nil {
		return
	}
	fields := merge(requestFields(ErrorLog, requestID, userID, clientIP, path, method), extraFields)
	fields["error"] = err.Error()
	entry().WithFields(fields).Errorf("System error occurred: %s", err.Error())
}

// LogWarn 记录请求相关的警告(限流、鉴权失败等)
func LogWarn(msg, requestID string, userID uint, clientIP, path, method string, extraFields map[string]interface{}) {
	fields := merge(requestFields(BusinessLog, requestID, userID, clientIP, path, method), extraFields)
	entry().WithFields(fields).Warn(msg)
}

// LogInfo 记录请求相关的普通信息
func LogInfo(msg, requestID string, userID uint, clientIP, path, method string, extraFields map[string]interface{}) {
	fields := merge(requestFields(BusinessLog, requestID, userID, clientIP, path, method), extraFields)
	entry().WithFields(fields).Info(msg)
}

// LogSystemEvent 记录系统事件日志
func LogSystemEvent(component, event, message string, level logrus.Level, extraFields map[string]interface{}) {
	entry().WithFields(merge(logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
		"detail":    message,
	}, extraFields)).Log(level, fmt.Sprintf("System event: %s - %s", component, event))
}

// LogAuditOperation 记录审计日志
func LogAuditOperation(userID uint, username, action, resource, result, clientIP, userAgent, requestID string, extraFields map[string]interface{}) {
	entry().WithFields(merge(logrus.Fields{
		"type":       AuditLog,
		"user_id":    userID,
		"username":   username,
		"action":     action,
		"resource":   resource,
		"result":     result,
		"client_ip":  clientIP,
		"user_agent": userAgent,
		"request_id": requestID,
	}, extraFields)).Info(fmt.Sprintf("Audit: %s performed %s on %s", username, action, resource))
}

// LogUpstreamCall 记录一次对 RAGFlow 的调用
func LogUpstreamCall(method, path string, statusCode int, elapsed time.Duration, err error) {
	e := entry().WithFields(logrus.Fields{
		"type":          UpstreamLog,
		"method":        method,
		"path":          path,
		"status_code":   statusCode,
		"response_time": elapsed.Milliseconds(),
	})
	if err != nil {
		e.WithError(err).Warn("RAGFlow request failed")
		return
	}
	e.Debug("RAGFlow request completed")
}
