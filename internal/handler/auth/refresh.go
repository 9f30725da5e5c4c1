package auth

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/service/auth"
)

// RefreshHandler 令牌刷新接口处理器
type RefreshHandler struct {
	loginService *auth.LoginService
}

// NewRefreshHandler 创建令牌刷新处理器实例
func NewRefreshHandler(loginService *auth.LoginService) *RefreshHandler {
	return &RefreshHandler{loginService: loginService}
}

// RefreshToken 用刷新令牌换取新的访问令牌，刷新令牌本身不轮换
// @Summary 刷新访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body model.RefreshTokenRequest true "刷新令牌"
// @Success 200 {object} model.Response{data=model.TokenResponse}
// @Failure 401 {object} model.Response "令牌无效或过期"
// @Router /api/v1/auth/refresh [post]
func (h *RefreshHandler) RefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}

	pair, err := h.loginService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, toTokenResponse(pair))
}
