/**
 * 中间件:安全中间件
 * @date 2026.10.16
 * @description 定义安全中间件
 * @func:
 *   - GinCORSMiddleware CORS跨域中间件，来源与方法按配置放行
 *   - GinSecurityHeadersMiddleware 安全响应头
 *   - GinRequestIDMiddleware 请求ID，沿用上游 X-Request-ID 或生成 UUID
 */
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"raggate/internal/handler/common"
)

const headerRequestID = "X-Request-ID"

// GinCORSMiddleware CORS跨域资源共享中间件
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cors := m.securityConfig.CORS
	methods := strings.Join(cors.AllowMethods, ", ")
	headers := strings.Join(cors.AllowHeaders, ", ")
	expose := strings.Join(cors.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cors.MaxAge.Seconds()))

	return func(c *gin.Context) {
		if !cors.Enabled {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(cors.AllowOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			if cors.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			if methods != "" {
				c.Header("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				c.Header("Access-Control-Allow-Headers", headers)
			}
			if expose != "" {
				c.Header("Access-Control-Expose-Headers", expose)
			}
			c.Header("Access-Control-Max-Age", maxAge)
		}

		// 预检请求直接返回
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// GinSecurityHeadersMiddleware 安全头中间件
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("X-Robots-Tag", "noindex, nofollow")
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Header("Server", "RagGate")
		c.Next()
	}
}

// GinRequestIDMiddleware 请求ID中间件
// 可能来自负载均衡器或代理，没有则生成
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(common.CtxRequestID, requestID)
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}
