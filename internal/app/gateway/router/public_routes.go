package router

import (
	"github.com/gin-gonic/gin"
)

// setupPublicRoutes 设置公共路由
// 注册接口始终挂载，关闭注册开关时由处理器返回 403，便于开关热更新
func (r *Router) setupPublicRoutes(v1 *gin.RouterGroup) {
	auth := r.modules.Auth
	group := v1.Group("/auth")
	{
		group.POST("/register", r.middlewareManager.GinAuthRateLimitMiddleware(), auth.RegisterHandler.Register)
		group.POST("/login", r.middlewareManager.GinAuthRateLimitMiddleware(), auth.LoginHandler.Login)
		group.POST("/refresh", auth.RefreshHandler.RefreshToken)
		group.GET("/password-rules", auth.LoginHandler.PasswordRules)
	}
}
