package setup

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"raggate/internal/app/gateway/middleware"
	"raggate/internal/config"
	"raggate/internal/repo/memory"
	redisRepo "raggate/internal/repo/redis"
)

// 限流策略
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// BuildRateLimiters 按策略创建全局限流器与认证接口限流器
// 未启用限流时返回 nil；redis 策略要求 Redis 已连接
func BuildRateLimiters(cfg *config.RateLimitConfig, client *redis.Client) (limiter, authLimiter middleware.RateLimiter, closers []func(), err error) {
	if !cfg.Enabled {
		return nil, nil, nil, nil
	}
	window, perr := time.ParseDuration(cfg.WindowSize)
	if perr != nil {
		window = 15 * time.Minute
	}

	switch cfg.Strategy {
	case RateLimitMemory, "token_bucket", "":
		global := memory.NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.BurstSize, window)
		auth := memory.NewTokenBucketLimiter(cfg.AuthPerSecond, cfg.AuthBurstSize, window)
		return global, auth, []func(){global.Close, auth.Close}, nil
	case RateLimitRedis:
		if client == nil {
			return nil, nil, nil, fmt.Errorf("rate limit strategy redis requires database.redis.enabled")
		}
		global := redisRepo.NewRateLimitRepository(client, "raggate:ratelimit:global", cfg.RequestsPerSecond, cfg.BurstSize, window)
		auth := redisRepo.NewRateLimitRepository(client, "raggate:ratelimit:auth", cfg.AuthPerSecond, cfg.AuthBurstSize, window)
		return global, auth, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported rate limit strategy: %s", cfg.Strategy)
	}
}
