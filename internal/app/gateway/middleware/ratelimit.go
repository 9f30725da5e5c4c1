/**
 * 中间件:限流器中间件
 * @date 2026.10.16
 * @description 令牌桶限流。限流器由 setup 按 strategy(memory/redis) 构建一次后注入
 * @func:
 *   - GinRateLimitMiddleware 全局限流[按客户端IP]
 *   - GinAuthRateLimitMiddleware 认证接口限流[按IP+路径，限制更严格]
 */
package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model/system"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
)

// GinRateLimitMiddleware 全局限流中间件
func (m *MiddlewareManager) GinRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limiter == nil || !m.securityConfig.RateLimit.Enabled || m.shouldSkipRateLimit(c) {
			c.Next()
			return
		}
		m.limit(c, m.limiter, utils.GetClientIP(c), "rate_limit_exceeded")
	}
}

// GinAuthRateLimitMiddleware 认证接口限流中间件
// 使用IP+路径作为限流key
func (m *MiddlewareManager) GinAuthRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.authLimiter == nil || !m.securityConfig.RateLimit.Enabled {
			c.Next()
			return
		}
		key := fmt.Sprintf("%s:%s", utils.GetClientIP(c), c.Request.URL.Path)
		m.limit(c, m.authLimiter, key, "auth_rate_limit_exceeded")
	}
}

func (m *MiddlewareManager) limit(c *gin.Context, limiter RateLimiter, key, operation string) {
	clientIP := utils.GetClientIP(c)
	allowed, err := limiter.Allow(c.Request.Context(), key)
	if err != nil {
		// 限流存储不可用时放行，只记录错误
		logger.LogError(err, common.RequestID(c), 0, clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
			"operation": "rate_limit_check",
			"func_name": "middleware.ratelimit.limit",
			"timestamp": logger.NowFormatted(),
		})
		c.Next()
		return
	}
	if !allowed {
		logger.LogWarn("Rate limit exceeded for client", common.RequestID(c), 0, clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
			"operation": operation,
			"key":       key,
			"timestamp": logger.NowFormatted(),
		})
		cfg := m.securityConfig.RateLimit
		common.Fail(c, system.NewTooManyRequestsError(cfg.Message, cfg.StatusCode))
		return
	}
	c.Next()
}

// shouldSkipRateLimit 检查是否应该跳过限流
func (m *MiddlewareManager) shouldSkipRateLimit(c *gin.Context) bool {
	path := c.Request.URL.Path
	for _, skipPath := range m.securityConfig.RateLimit.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	clientIP := utils.GetClientIP(c)
	for _, skipIP := range m.securityConfig.RateLimit.SkipIPs {
		if clientIP == skipIP {
			return true
		}
	}
	return false
}
