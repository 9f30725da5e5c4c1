package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"空串", "", ""},
		{"纯IPv4", "192.168.1.10", "192.168.1.10"},
		{"带端口", "10.0.0.1:8080", "10.0.0.1"},
		{"XFF列表取第一个", " 203.0.113.5 , 10.0.0.1", "203.0.113.5"},
		{"IPv4映射IPv6", "::ffff:192.0.2.1", "192.0.2.1"},
		{"IPv6带端口", "[2001:db8::1]:443", "2001:db8::1"},
		{"非法值原样返回", "not-an-ip", "not-an-ip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIP(tt.input))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "172.16.0.9:5555"
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		c.Request = req
		return c
	}

	assert.Equal(t, "203.0.113.5", GetClientIP(newCtx(map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"})))
	assert.Equal(t, "198.51.100.7", GetClientIP(newCtx(map[string]string{"X-Real-IP": "198.51.100.7"})))
	assert.Equal(t, "172.16.0.9", GetClientIP(newCtx(nil)))
}

func TestClientIPContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetClientIPFromContext(ctx))

	ctx = WithClientIP(ctx, "10.1.2.3")
	assert.Equal(t, "10.1.2.3", GetClientIPFromContext(ctx))
}
