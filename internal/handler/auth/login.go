package auth

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
	"raggate/internal/service/auth"
)

// LoginHandler 登录接口处理器
type LoginHandler struct {
	loginService *auth.LoginService
	policy       *pkgauth.PasswordPolicy
}

// NewLoginHandler 创建登录处理器实例
func NewLoginHandler(loginService *auth.LoginService, policy *pkgauth.PasswordPolicy) *LoginHandler {
	if policy == nil {
		policy = pkgauth.NewPasswordPolicy("")
	}
	return &LoginHandler{
		loginService: loginService,
		policy:       policy,
	}
}

// Login 用户登录接口
// @Summary 用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "登录请求"
// @Success 200 {object} model.Response{data=model.TokenResponse}
// @Failure 401 {object} model.Response "认证失败"
// @Router /api/v1/auth/login [post]
func (h *LoginHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}

	pair, user, err := h.loginService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.LogAuditOperation(0, req.Username, "login", "auth", "failed", utils.GetClientIP(c), c.GetHeader("User-Agent"), common.RequestID(c), map[string]interface{}{
			"reason":    err.Error(),
			"timestamp": logger.NowFormatted(),
		})
		common.Fail(c, err)
		return
	}

	logger.LogAuditOperation(user.ID, user.Username, "login", "auth", "success", utils.GetClientIP(c), c.GetHeader("User-Agent"), common.RequestID(c), map[string]interface{}{
		"timestamp": logger.NowFormatted(),
	})
	common.OK(c, toTokenResponse(pair))
}

// PasswordRules 当前密码复杂度规则
// @Summary 密码规则
// @Tags 认证
// @Produce json
// @Success 200 {object} model.Response{data=model.PasswordRules}
// @Router /api/v1/auth/password-rules [get]
func (h *LoginHandler) PasswordRules(c *gin.Context) {
	rule := h.policy.Rule()
	rules := model.PasswordRules{
		Level:          string(h.policy.Level()),
		MinLength:      rule.MinLength,
		RequireUpper:   rule.Uppercase,
		RequireLower:   rule.Lowercase,
		RequireDigits:  rule.Digits,
		RequireSymbols: rule.Symbols,
	}
	if rule.Symbols {
		rules.Symbols = pkgauth.Symbols
	}
	common.OK(c, rules)
}

func toTokenResponse(pair *pkgauth.TokenPair) model.TokenResponse {
	return model.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	}
}
