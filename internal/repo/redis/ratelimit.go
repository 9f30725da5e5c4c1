/**
 * 仓库层:Redis 令牌桶
 * @date 2026.10.16
 * @description 限流状态存放在 Redis，多实例共享同一个桶。
 *              补充令牌与消费在一个 Lua 脚本中完成，保证原子性。
 */
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// tokenBucketScript KEYS[1]=桶; ARGV: rate, burst, now(ms), ttl(ms)
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(bucket[1])
local ts = tonumber(bucket[2])
if tokens == nil then
  tokens = burst
  ts = now
end

local elapsed = math.max(0, now - ts) / 1000
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(now))
redis.call("PEXPIRE", KEYS[1], ttl)
return allowed
`)

// RateLimitRepository Redis 令牌桶
type RateLimitRepository struct {
	client *redis.Client
	prefix string
	rate   int
	burst  int
	idle   time.Duration
}

// NewRateLimitRepository 创建 Redis 令牌桶，idle 为空闲桶过期时间
func NewRateLimitRepository(client *redis.Client, prefix string, rate, burst int, idle time.Duration) *RateLimitRepository {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = rate
	}
	if idle <= 0 {
		idle = 15 * time.Minute
	}
	if prefix == "" {
		prefix = "raggate:ratelimit"
	}
	return &RateLimitRepository{client: client, prefix: prefix, rate: rate, burst: burst, idle: idle}
}

func (r *RateLimitRepository) key(k string) string {
	return fmt.Sprintf("%s:%s", r.prefix, k)
}

// Allow 尝试消费一个令牌
func (r *RateLimitRepository) Allow(ctx context.Context, key string) (bool, error) {
	res, err := tokenBucketScript.Run(ctx, r.client, []string{r.key(key)},
		r.rate, r.burst, time.Now().UnixMilli(), r.idle.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return res == 1, nil
}

// Reset 清除 key 的限流状态
func (r *RateLimitRepository) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
