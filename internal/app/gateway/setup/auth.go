package setup

import (
	"gorm.io/gorm"

	"raggate/internal/config"
	authHandler "raggate/internal/handler/auth"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/logger"
	systemRepo "raggate/internal/repo/mysql/system"
	authService "raggate/internal/service/auth"
)

// BuildAuthModule 构建认证模块
// 注册依赖 IAM 模块的用户服务与邀请码服务，需在 BuildIAMModule 之后调用
func BuildAuthModule(db *gorm.DB, cfg *config.Config, hasher pkgauth.PasswordHasher, iamModule *IAMModule) (*AuthModule, error) {
	logger.WithFields(map[string]interface{}{
		"operation": "setup",
		"option":    "setup.auth.begin",
		"func_name": "setup.auth.BuildAuthModule",
	}).Info("开始构建认证模块")

	jwtCfg := cfg.Security.JWT
	jwtManager := pkgauth.NewJWTManager(jwtCfg.Secret, jwtCfg.Issuer, jwtCfg.AccessTokenExpire, jwtCfg.RefreshTokenExpire)

	userRepo, err := systemRepo.NewUserRepository(db)
	if err != nil {
		return nil, err
	}
	loginService := authService.NewLoginService(db, userRepo, hasher, jwtManager)
	registrationService, err := authService.NewRegistrationService(iamModule.UserService, iamModule.InviteCodeService)
	if err != nil {
		return nil, err
	}

	module := &AuthModule{
		LoginHandler:        authHandler.NewLoginHandler(loginService, iamModule.PasswordPolicy),
		RefreshHandler:      authHandler.NewRefreshHandler(loginService),
		RegisterHandler:     authHandler.NewRegisterHandler(registrationService, registrationEnabled(cfg)),
		LoginService:        loginService,
		RegistrationService: registrationService,
		JWTManager:          jwtManager,
	}

	logger.WithFields(map[string]interface{}{
		"operation": "setup",
		"option":    "setup.auth.done",
		"func_name": "setup.auth.BuildAuthModule",
	}).Info("认证模块构建完成")
	return module, nil
}

// registrationEnabled 注册开关跟随配置热更新
func registrationEnabled(cfg *config.Config) func() bool {
	return func() bool {
		if current := config.GetConfig(); current != nil {
			return current.App.Features.UserRegistration
		}
		return cfg.App.Features.UserRegistration
	}
}
