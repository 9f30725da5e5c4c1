/**
 * 路由:健康检查路由
 * @date 2026.10.16
 * @description /health 存活检查；/ready 检查数据库与 Redis 是否可用
 */
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/pkg/database"
	"raggate/internal/pkg/logger"
)

const readyTimeout = 3 * time.Second

// 组件状态
const (
	statusUp   = "up"
	statusDown = "down"
)

// HealthChecker 依赖组件就绪检查，redis 为 nil 时跳过
type HealthChecker struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthChecker 创建就绪检查器
func NewHealthChecker(db *gorm.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient}
}

// Check 逐个检查组件，全部可用时返回 true
func (h *HealthChecker) Check(ctx context.Context) (map[string]string, bool) {
	components := map[string]string{}
	ok := true

	if h.db != nil {
		if err := database.Ping(ctx, h.db); err != nil {
			components["database"] = statusDown
			ok = false
		} else {
			components["database"] = statusUp
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = statusDown
			ok = false
		} else {
			components["redis"] = statusUp
		}
	}
	return components, ok
}

// setupHealthRoutes 设置健康检查路由
func (r *Router) setupHealthRoutes(api *gin.RouterGroup) {
	api.GET("/health", r.healthCheck)
	api.GET("/ready", r.readinessCheck)
}

func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, model.OK(model.HealthStatus{
		Status:    "healthy",
		Timestamp: logger.NowFormatted(),
	}))
}

func (r *Router) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	status := model.HealthStatus{Status: "ready", Timestamp: logger.NowFormatted()}
	code := http.StatusOK
	if r.health != nil {
		components, ok := r.health.Check(ctx)
		status.Components = components
		if !ok {
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, model.OK(status))
}
