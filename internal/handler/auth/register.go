package auth

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
	"raggate/internal/service/auth"
)

// RegisterHandler 注册接口处理器
type RegisterHandler struct {
	registrationService *auth.RegistrationService
	enabled             func() bool // 读取 app.features.user_registration，支持热更新
}

// NewRegisterHandler 创建注册处理器实例，enabled 为 nil 时始终开放
func NewRegisterHandler(registrationService *auth.RegistrationService, enabled func() bool) *RegisterHandler {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &RegisterHandler{
		registrationService: registrationService,
		enabled:             enabled,
	}
}

// Register 邀请码注册
// @Summary 用户注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "注册请求"
// @Success 201 {object} model.Response{data=model.UserInfo} "注册成功"
// @Failure 409 {object} model.Response "用户已存在"
// @Failure 422 {object} model.Response "参数或邀请码无效"
// @Router /api/v1/auth/register [post]
func (h *RegisterHandler) Register(c *gin.Context) {
	if !h.enabled() {
		common.Fail(c, system.NewPermissionDeniedError("User registration is disabled"))
		return
	}

	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}

	user, err := h.registrationService.Register(c.Request.Context(), &req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	logger.LogBusinessOperation("user_register", user.ID, user.Username, utils.GetClientIP(c), common.RequestID(c), "success", "用户注册成功", map[string]interface{}{
		"timestamp": logger.NowFormatted(),
	})
	common.Created(c, model.NewUserInfo(user))
}
