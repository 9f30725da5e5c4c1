package system

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
	"raggate/internal/service/iam"
)

// InviteCodeHandler 邀请码处理器
type InviteCodeHandler struct {
	inviteService *iam.InviteCodeService
}

// NewInviteCodeHandler 创建邀请码处理器
func NewInviteCodeHandler(inviteService *iam.InviteCodeService) *InviteCodeHandler {
	return &InviteCodeHandler{inviteService: inviteService}
}

// CreateInviteCodes 批量生成邀请码
func (h *InviteCodeHandler) CreateInviteCodes(c *gin.Context) {
	var req model.CreateInviteCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	codes, err := h.inviteService.CreateInviteCodes(c.Request.Context(), req.Count, req.Length)
	if err != nil {
		common.Fail(c, err)
		return
	}

	actor := common.CurrentUser(c)
	logger.LogBusinessOperation("create_invite_codes", actor.ID, actor.Username, utils.GetClientIP(c), common.RequestID(c), "success", "生成邀请码", map[string]interface{}{
		"count":     len(codes),
		"timestamp": logger.NowFormatted(),
	})
	common.Created(c, codes)
}

// ListInviteCodes 邀请码分页列表，可按 used 过滤
func (h *InviteCodeHandler) ListInviteCodes(c *gin.Context) {
	q, err := common.ParsePageQuery(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	codes, total, err := h.inviteService.GetPaged(c.Request.Context(), q, false)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewPageData(codes, total, q.Page, q.PageSize))
}
