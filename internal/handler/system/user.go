/**
 * @date: 2026.10.16
 * @description: 用户管理接口
 * @func:
 * 	1.当前用户信息
 * 	2.用户分页列表/详情
 * 	3.创建与更新用户
 * 	4.分配角色
 * 	5.批量启用禁用、批量删除
 */
package system

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
	"raggate/internal/service/iam"
)

// UserHandler 用户管理处理器
type UserHandler struct {
	userService *iam.UserService
	rbacService *iam.RBACService // 加载当前用户的角色与权限
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(userService *iam.UserService, rbacService *iam.RBACService) *UserHandler {
	return &UserHandler{
		userService: userService,
		rbacService: rbacService,
	}
}

// Me 当前登录用户信息(含角色与权限)
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.rbacService.CurrentUser(c.Request.Context(), common.UserID(c))
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewUserInfo(user))
}

// ListUsers 用户分页列表，支持 field__op 过滤
func (h *UserHandler) ListUsers(c *gin.Context) {
	q, err := common.ParsePageQuery(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	users, total, err := h.userService.GetPaged(c.Request.Context(), q, true)
	if err != nil {
		common.Fail(c, err)
		return
	}

	items := make([]model.UserInfo, 0, len(users))
	for i := range users {
		items = append(items, model.NewUserInfo(&users[i]))
	}
	common.OK(c, model.NewPageData(items, total, q.Page, q.PageSize))
}

// GetUser 用户详情
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := common.ParseUintParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	user, err := h.userService.GetByPK(c.Request.Context(), id, true)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewUserInfo(user))
}

// CreateUser 管理员创建用户
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	actor := common.CurrentUser(c)
	logger.LogAuditOperation(actor.ID, actor.Username, "create_user", "user", "success", utils.GetClientIP(c), c.GetHeader("User-Agent"), common.RequestID(c), map[string]interface{}{
		"target_user_id": user.ID,
		"username":       user.Username,
		"timestamp":      logger.NowFormatted(),
	})
	common.Created(c, model.NewUserInfo(user))
}

// UpdateUser 局部更新用户
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := common.ParseUintParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewUserInfo(user))
}

// AssignRoles 替换用户角色
func (h *UserHandler) AssignRoles(c *gin.Context) {
	id, err := common.ParseUintParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req model.AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	user, err := h.userService.AssignRoles(c.Request.Context(), id, req.RoleIDs)
	if err != nil {
		common.Fail(c, err)
		return
	}

	actor := common.CurrentUser(c)
	logger.LogAuditOperation(actor.ID, actor.Username, "assign_roles", "user", "success", utils.GetClientIP(c), c.GetHeader("User-Agent"), common.RequestID(c), map[string]interface{}{
		"target_user_id": id,
		"role_ids":       req.RoleIDs,
		"timestamp":      logger.NowFormatted(),
	})
	common.OK(c, model.NewUserInfo(user))
}

// DisableUsers 批量启用/禁用，逐项返回结果
func (h *UserHandler) DisableUsers(c *gin.Context) {
	var req model.DisableUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	actor := common.CurrentUser(c)
	results := h.userService.SetUsersActive(c.Request.Context(), actor.ID, req.UserIDs, !req.ShouldDisable())

	logger.LogAuditOperation(actor.ID, actor.Username, "disable_users", "user", "done", utils.GetClientIP(c), c.GetHeader("User-Agent"), common.RequestID(c), map[string]interface{}{
		"user_ids":  req.UserIDs,
		"disable":   req.ShouldDisable(),
		"timestamp": logger.NowFormatted(),
	})
	common.OK(c, results)
}

// DeleteUsers 批量删除，逐项返回结果
func (h *UserHandler) DeleteUsers(c *gin.Context) {
	var req model.DeleteUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	actor := common.CurrentUser(c)
	results := h.userService.DeleteUsers(c.Request.Context(), actor.ID, req.UserIDs)

	logger.LogAuditOperation(actor.ID, actor.Username, "delete_users", "user", "done", utils.GetClientIP(c), c.GetHeader("User-Agent"), common.RequestID(c), map[string]interface{}{
		"user_ids":  req.UserIDs,
		"timestamp": logger.NowFormatted(),
	})
	common.OK(c, results)
}
