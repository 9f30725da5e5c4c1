/**
 * 中间件:认证相关中间件
 * @date 2026.10.16
 * @description 令牌认证与角色/权限守卫
 * @func:
 *   - GinJWTAuthMiddleware: 校验 Bearer 访问令牌并加载当前用户
 *   - GinRequireRole: 要求指定角色
 *   - GinRequireAnyRole: 要求任一角色
 *   - GinRequirePermission: 要求指定权限
 */
package middleware

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model/system"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
)

// GinJWTAuthMiddleware 校验请求头中的访问令牌，并将用户写入Gin上下文
// 使用方式: group.Use(middlewareManager.GinJWTAuthMiddleware())
func (m *MiddlewareManager) GinJWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := pkgauth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if accessToken == "" {
			common.Fail(c, system.NewUnauthorizedError("Could not validate credentials"))
			return
		}

		user, err := m.loginService.Authenticate(c.Request.Context(), accessToken)
		if err != nil {
			logger.LogWarn("Token authentication failed", common.RequestID(c), 0, utils.GetClientIP(c), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
				"operation": "token_validation",
				"func_name": "middleware.auth.GinJWTAuthMiddleware",
				"error":     err.Error(),
				"timestamp": logger.NowFormatted(),
			})
			common.Fail(c, err)
			return
		}

		c.Set(common.CtxUser, user)
		c.Set(common.CtxUserID, user.ID)
		c.Set(common.CtxUsername, user.Username)
		c.Next()
	}
}

// GinRequireRole 要求当前用户具有指定角色，超级用户直接放行
func (m *MiddlewareManager) GinRequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.rbacService.HasRole(c.Request.Context(), common.UserID(c), role); err != nil {
			m.deny(c, err, "role", role)
			return
		}
		c.Next()
	}
}

// GinRequireAnyRole 要求当前用户具有任一角色
func (m *MiddlewareManager) GinRequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.rbacService.CheckAnyRole(c.Request.Context(), common.UserID(c), roles); err != nil {
			m.deny(c, err, "roles", roles)
			return
		}
		c.Next()
	}
}

// GinRequirePermission 要求当前用户角色权限并集中包含指定权限
func (m *MiddlewareManager) GinRequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.rbacService.HasPerm(c.Request.Context(), common.UserID(c), perm); err != nil {
			m.deny(c, err, "permission", perm)
			return
		}
		c.Next()
	}
}

func (m *MiddlewareManager) deny(c *gin.Context, err error, kind string, required interface{}) {
	logger.LogWarn("Access denied", common.RequestID(c), common.UserID(c), utils.GetClientIP(c), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
		"operation": "access_check",
		"required":  required,
		"kind":      kind,
		"error":     err.Error(),
		"timestamp": logger.NowFormatted(),
	})
	common.Fail(c, err)
}
