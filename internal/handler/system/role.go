package system

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/service/iam"
)

// RoleHandler 角色管理处理器
type RoleHandler struct {
	roleService *iam.RoleService
}

// NewRoleHandler 创建角色管理处理器
func NewRoleHandler(roleService *iam.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// ListRoles 角色分页列表
func (h *RoleHandler) ListRoles(c *gin.Context) {
	q, err := common.ParsePageQuery(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	roles, total, err := h.roleService.GetPaged(c.Request.Context(), q, true)
	if err != nil {
		common.Fail(c, err)
		return
	}
	items := make([]model.RoleInfo, 0, len(roles))
	for i := range roles {
		items = append(items, model.NewRoleInfo(&roles[i]))
	}
	common.OK(c, model.NewPageData(items, total, q.Page, q.PageSize))
}

// GetRole 角色详情
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, err := common.ParseUintParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	role, err := h.roleService.GetByPK(c.Request.Context(), id, true)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewRoleInfo(role))
}

// CreateRole 创建角色
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req model.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	role, err := h.roleService.CreateRole(c.Request.Context(), &req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.Created(c, model.NewRoleInfo(role))
}

// UpdateRole 更新角色
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, err := common.ParseUintParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req model.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	role, err := h.roleService.UpdateRole(c.Request.Context(), id, &req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewRoleInfo(role))
}

// DeleteRole 删除角色
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, err := common.ParseUintParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	role, err := h.roleService.DeleteRole(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewRoleInfo(role))
}
