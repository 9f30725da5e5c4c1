/**
 * 中间件:日志相关中间件
 * @date 2026.10.16
 * @description 访问日志。客户端IP同时写入Gin上下文和标准上下文，供 service 层使用
 */
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
)

// GinLoggingMiddleware Gin日志中间件
// 使用方式: router.Use(middlewareManager.GinLoggingMiddleware())
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		clientIP := utils.GetClientIP(c)

		c.Set("client_ip", clientIP)
		c.Request = c.Request.WithContext(utils.WithClientIP(c.Request.Context(), clientIP))

		c.Next()

		requestID := common.RequestID(c)
		userID := common.UserID(c)
		logger.LogAccessRequest(c, start, requestID, userID)

		statusCode := c.Writer.Status()
		if statusCode < http.StatusInternalServerError {
			return
		}
		errorMsg := http.StatusText(statusCode)
		if len(c.Errors) > 0 {
			errorMsg = c.Errors.String()
		}
		logger.LogError(fmt.Errorf("HTTP %d: %s", statusCode, errorMsg), requestID, userID, clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
			"operation":   "http_request",
			"status_code": statusCode,
			"user_agent":  c.GetHeader("User-Agent"),
			"timestamp":   logger.NowFormatted(),
		})
	}
}
