package middleware

import (
	"context"

	"raggate/internal/config"
	"raggate/internal/service/auth"
	"raggate/internal/service/iam"
)

// RateLimiter 限流器接口，内存令牌桶与 Redis 令牌桶均实现该接口
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// MiddlewareManager 中间件管理器
// 负责管理所有Gin框架的中间件，提供统一的中间件接口
type MiddlewareManager struct {
	loginService   *auth.LoginService     // 令牌校验与用户加载
	rbacService    *iam.RBACService       // 角色与权限检查
	securityConfig *config.SecurityConfig // 安全配置
	limiter        RateLimiter            // 全局限流器(按IP)
	authLimiter    RateLimiter            // 认证接口限流器(按IP+路径)
}

// NewMiddlewareManager 创建中间件管理器
// 限流器在构建阶段创建一次，nil 表示不限流
func NewMiddlewareManager(loginService *auth.LoginService, rbacService *iam.RBACService, securityConfig *config.SecurityConfig, limiter, authLimiter RateLimiter) *MiddlewareManager {
	return &MiddlewareManager{
		loginService:   loginService,
		rbacService:    rbacService,
		securityConfig: securityConfig,
		limiter:        limiter,
		authLimiter:    authLimiter,
	}
}
