package setup

import (
	"raggate/internal/app/gateway/middleware"
	"raggate/internal/config"
	pkgauth "raggate/internal/pkg/auth"
)

// BuildModules 按依赖顺序装配全部模块：IAM → Auth → RAGFlow → 中间件
func BuildModules(infra *Infra, cfg *config.Config) (*Modules, error) {
	hasher := pkgauth.NewPasswordManager(nil)

	iamModule, err := BuildIAMModule(infra.DB, cfg, hasher)
	if err != nil {
		return nil, err
	}
	authModule, err := BuildAuthModule(infra.DB, cfg, hasher, iamModule)
	if err != nil {
		return nil, err
	}
	ragflowModule, err := BuildRAGFlowModule(infra, cfg)
	if err != nil {
		return nil, err
	}

	limiter, authLimiter, closers, err := BuildRateLimiters(&cfg.Security.RateLimit, infra.Redis)
	if err != nil {
		return nil, err
	}

	return &Modules{
		IAM:        iamModule,
		Auth:       authModule,
		RAGFlow:    ragflowModule,
		Middleware: middleware.NewMiddlewareManager(authModule.LoginService, iamModule.RBACService, &cfg.Security, limiter, authLimiter),
		closers:    closers,
	}, nil
}
