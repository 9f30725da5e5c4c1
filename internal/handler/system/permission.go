package system

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/service/iam"
)

// PermissionHandler 权限查询处理器，权限由 init-perms 命令维护
type PermissionHandler struct {
	permissionService *iam.PermissionService
}

// NewPermissionHandler 创建权限处理器
func NewPermissionHandler(permissionService *iam.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// ListPermissions 权限分页列表
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	q, err := common.ParsePageQuery(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	perms, total, err := h.permissionService.GetPaged(c.Request.Context(), q, false)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewPageData(perms, total, q.Page, q.PageSize))
}
