package router

import (
	"github.com/gin-gonic/gin"
)

// setupUserRoutes 设置当前用户路由
func (r *Router) setupUserRoutes(v1 *gin.RouterGroup) {
	users := v1.Group("/users")
	users.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		users.GET("/me", r.modules.IAM.UserHandler.Me)
	}
}
