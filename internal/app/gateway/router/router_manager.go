/**
 * 路由:路由管理器
 * @date 2026.10.16
 * @description 路由管理器，先注册全局中间件，再按模块注册 /api/v1 路由
 */
package router

import (
	"github.com/gin-gonic/gin"

	"raggate/internal/app/gateway/middleware"
	"raggate/internal/app/gateway/setup"
	"raggate/internal/config"
	"raggate/internal/pkg/logger"
)

// Router 路由管理器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager
	modules           *setup.Modules
	health            *HealthChecker
}

// NewRouter 创建路由管理器实例
func NewRouter(cfg *config.Config, modules *setup.Modules, health *HealthChecker) *Router {
	return &Router{
		config:            cfg,
		engine:            gin.New(),
		middlewareManager: modules.Middleware,
		modules:           modules,
		health:            health,
	}
}

// SetupRoutes 设置全局中间件和路由
func (r *Router) SetupRoutes() {
	r.registerGlobalMiddleware()
	r.registerRoutes()
}

// GetEngine 获取Gin引擎实例
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// registerGlobalMiddleware 注册全局中间件
// 顺序: Recovery → RequestID → CORS → 安全头 → 日志 → 限流
func (r *Router) registerGlobalMiddleware() {
	logger.WithFields(map[string]interface{}{
		"operation": "register_global_middleware",
		"option":    "middlewareManager.attach",
		"func_name": "router.registerGlobalMiddleware",
	}).Info("开始注册全局中间件")

	r.engine.Use(gin.Recovery())
	r.engine.MaxMultipartMemory = r.config.Server.MaxUploadSize

	if r.middlewareManager != nil {
		r.engine.Use(r.middlewareManager.GinRequestIDMiddleware())
		r.engine.Use(r.middlewareManager.GinCORSMiddleware())
		r.engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
		r.engine.Use(r.middlewareManager.GinLoggingMiddleware())
		r.engine.Use(r.middlewareManager.GinRateLimitMiddleware())
	}

	logger.WithFields(map[string]interface{}{
		"operation": "register_global_middleware",
		"option":    "middlewareManager.attach.done",
		"func_name": "router.registerGlobalMiddleware",
	}).Info("全局中间件注册完成")
}

// registerRoutes 注册路由
func (r *Router) registerRoutes() {
	logger.WithFields(map[string]interface{}{
		"operation": "register_routes",
		"option":    "routes.attach.begin",
		"func_name": "router.registerRoutes",
	}).Info("开始注册路由")

	api := r.engine.Group("/api")
	v1 := api.Group("/v1")

	// 公共路由（不需要认证）
	r.setupPublicRoutes(v1)
	// 当前用户路由（需要登录）
	r.setupUserRoutes(v1)
	// IAM管理路由（需要管理员角色）
	r.setupIAMRoutes(v1)
	// RAGFlow网关路由（按权限）
	r.setupRAGFlowRoutes(v1)
	// 健康检查路由
	r.setupHealthRoutes(api)

	logger.WithFields(map[string]interface{}{
		"operation": "register_routes",
		"option":    "routes.attach.done",
		"func_name": "router.registerRoutes",
		"routes":    len(r.engine.Routes()),
	}).Info("路由注册完成")
}
