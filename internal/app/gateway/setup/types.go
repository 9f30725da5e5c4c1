/**
 * 初始化
 * @date 2026.10.16
 * @description 各模块的聚合输出。setup 层只负责依赖装配(Handler → Service → Repository)，
 *              router 通过这些结构取用处理器与中间件。
 */
package setup

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"raggate/internal/app/gateway/middleware"
	authHandler "raggate/internal/handler/auth"
	ragflowHandler "raggate/internal/handler/ragflow"
	systemHandler "raggate/internal/handler/system"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/mq"
	rf "raggate/internal/pkg/ragflow"
	"raggate/internal/pkg/storage"
	authService "raggate/internal/service/auth"
	"raggate/internal/service/iam"
	ragflowService "raggate/internal/service/ragflow"
)

// Infra 外部依赖连接
// Redis/Store/Queue 在对应功能未启用时为 nil
type Infra struct {
	DB    *gorm.DB
	Redis *redis.Client
	Store storage.ObjectStore
	Queue mq.Backend
}

// IAMModule 用户、角色、权限与邀请码
type IAMModule struct {
	UserHandler       *systemHandler.UserHandler
	RoleHandler       *systemHandler.RoleHandler
	PermissionHandler *systemHandler.PermissionHandler
	InviteCodeHandler *systemHandler.InviteCodeHandler

	UserService       *iam.UserService
	RoleService       *iam.RoleService
	PermissionService *iam.PermissionService
	InviteCodeService *iam.InviteCodeService
	RBACService       *iam.RBACService
	PasswordPolicy    *pkgauth.PasswordPolicy
}

// AuthModule 登录、刷新与注册
type AuthModule struct {
	LoginHandler    *authHandler.LoginHandler
	RefreshHandler  *authHandler.RefreshHandler
	RegisterHandler *authHandler.RegisterHandler

	LoginService        *authService.LoginService
	RegistrationService *authService.RegistrationService
	JWTManager          *pkgauth.JWTManager
}

// RAGFlowModule RAGFlow 网关
// Worker 仅在启用解析队列时非 nil
type RAGFlowModule struct {
	Handler *ragflowHandler.Handler
	Service *ragflowService.Service
	Client  *rf.Client
	Worker  *ragflowService.ParseWorker
}

// Modules 全部模块
type Modules struct {
	IAM        *IAMModule
	Auth       *AuthModule
	RAGFlow    *RAGFlowModule
	Middleware *middleware.MiddlewareManager

	closers []func()
}

// Close 释放模块持有的后台资源(如内存限流器的清理协程)
func (m *Modules) Close() {
	for _, fn := range m.closers {
		fn()
	}
}
