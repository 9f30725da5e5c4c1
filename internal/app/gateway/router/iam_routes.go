package router

import (
	"github.com/gin-gonic/gin"
)

// RoleAdmin IAM管理所需角色
const RoleAdmin = "admin"

// setupIAMRoutes 设置用户、角色、权限与邀请码管理路由
func (r *Router) setupIAMRoutes(v1 *gin.RouterGroup) {
	m := r.modules.IAM
	group := v1.Group("/iam")
	group.Use(r.middlewareManager.GinJWTAuthMiddleware(), r.middlewareManager.GinRequireRole(RoleAdmin))

	users := group.Group("/users")
	{
		users.GET("", m.UserHandler.ListUsers)
		users.POST("", m.UserHandler.CreateUser)
		users.POST("/disable", m.UserHandler.DisableUsers)
		users.POST("/delete", m.UserHandler.DeleteUsers)
		users.GET("/:id", m.UserHandler.GetUser)
		users.PATCH("/:id", m.UserHandler.UpdateUser)
		users.PUT("/:id/roles", m.UserHandler.AssignRoles)
	}

	roles := group.Group("/roles")
	{
		roles.GET("", m.RoleHandler.ListRoles)
		roles.POST("", m.RoleHandler.CreateRole)
		roles.GET("/:id", m.RoleHandler.GetRole)
		roles.PATCH("/:id", m.RoleHandler.UpdateRole)
		roles.DELETE("/:id", m.RoleHandler.DeleteRole)
	}

	group.GET("/permissions", m.PermissionHandler.ListPermissions)

	invites := group.Group("/invite-codes")
	{
		invites.GET("", m.InviteCodeHandler.ListInviteCodes)
		invites.POST("", m.InviteCodeHandler.CreateInviteCodes)
	}
}
