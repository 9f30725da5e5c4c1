/**
 * 仓库层:内存令牌桶
 * @date 2026.10.16
 * @description 进程内令牌桶限流状态，适合单实例部署；多实例部署使用 repo/redis 中的实现。
 *              与 redis 版本行为一致，可在配置 security.rate_limit.strategy 中二选一。
 */
package memory

import (
	"context"
	"sync"
	"time"
)

// TokenBucketLimiter 令牌桶限流器，每个 key 一个桶
type TokenBucketLimiter struct {
	buckets map[string]*tokenBucket
	mutex   sync.Mutex
	rate    float64       // 每秒生成的令牌数
	burst   float64       // 桶容量
	cleanup time.Duration // 空闲桶清理间隔
	stop    chan struct{}
	once    sync.Once
}

type tokenBucket struct {
	tokens   float64
	lastTime time.Time
}

// NewTokenBucketLimiter 创建令牌桶限流器并启动空闲桶清理协程
func NewTokenBucketLimiter(rate, burst int, cleanup time.Duration) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = rate
	}
	if cleanup <= 0 {
		cleanup = 15 * time.Minute
	}
	l := &TokenBucketLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    float64(rate),
		burst:   float64(burst),
		cleanup: cleanup,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow 尝试消费一个令牌
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.allowAt(key, time.Now()), nil
}

func (l *TokenBucketLimiter) allowAt(key string, now time.Time) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastTime: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastTime).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.lastTime = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Reset 清除 key 的限流状态
func (l *TokenBucketLimiter) Reset(_ context.Context, key string) error {
	l.mutex.Lock()
	delete(l.buckets, key)
	l.mutex.Unlock()
	return nil
}

// Close 停止清理协程
func (l *TokenBucketLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.evictIdle(now)
		}
	}
}

// evictIdle 删除超过清理间隔未使用的桶
func (l *TokenBucketLimiter) evictIdle(now time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastTime) > l.cleanup {
			delete(l.buckets, key)
		}
	}
}
