package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"raggate/internal/config"
	"raggate/internal/repo/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (brokenLimiter) Reset(context.Context, string) error { return nil }

func newEngine(m *MiddlewareManager, mws ...gin.HandlerFunc) *gin.Engine {
	e := gin.New()
	e.Use(m.GinRequestIDMiddleware())
	e.Use(mws...)
	e.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	e.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return e
}

func serve(e *gin.Engine, method, ip string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	req.Header.Set("X-Forwarded-For", ip)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := memory.NewTokenBucketLimiter(1, 2, time.Minute)
	defer limiter.Close()

	sec := &config.SecurityConfig{RateLimit: config.RateLimitConfig{
		Enabled:    true,
		StatusCode: http.StatusTooManyRequests,
		Message:    "slow down",
		SkipIPs:    []string{"10.0.0.99"},
	}}
	m := NewMiddlewareManager(nil, nil, sec, limiter, nil)
	e := newEngine(m, m.GinRateLimitMiddleware())

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "10.0.0.1", nil).Code)
	w := serve(e, http.MethodGet, "10.0.0.1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "slow down")

	// 白名单IP与其他IP不受影响
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "10.0.0.99", nil).Code)
	}
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "10.0.0.2", nil).Code)
}

func TestRateLimitFailOpen(t *testing.T) {
	sec := &config.SecurityConfig{RateLimit: config.RateLimitConfig{Enabled: true}}
	m := NewMiddlewareManager(nil, nil, sec, brokenLimiter{}, brokenLimiter{})
	e := newEngine(m, m.GinRateLimitMiddleware(), m.GinAuthRateLimitMiddleware())

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "10.0.0.1", nil).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	sec := &config.SecurityConfig{}
	m := NewMiddlewareManager(nil, nil, sec, brokenLimiter{}, nil)
	e := newEngine(m, m.GinRateLimitMiddleware(), m.GinAuthRateLimitMiddleware())

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "10.0.0.1", nil).Code)
}

func TestCORSMiddleware(t *testing.T) {
	sec := &config.SecurityConfig{CORS: config.CORSConfig{
		Enabled:          true,
		AllowOrigins:     []string{"https://app.example.com"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}}
	m := NewMiddlewareManager(nil, nil, sec, nil, nil)
	e := newEngine(m, m.GinCORSMiddleware())

	w := serve(e, http.MethodGet, "10.0.0.1", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))

	w = serve(e, http.MethodGet, "10.0.0.1", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(e, http.MethodOptions, "10.0.0.1", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	m := NewMiddlewareManager(nil, nil, &config.SecurityConfig{}, nil, nil)
	e := newEngine(m)

	w := serve(e, http.MethodGet, "10.0.0.1", nil)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)

	w = serve(e, http.MethodGet, "10.0.0.1", map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}
