package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// NormalizeIP 标准化IP地址：
// - 若是带端口的地址，去掉端口
// - 若是 X-Forwarded-For 列表，取第一个
// - 若是 IPv4-mapped IPv6 (::ffff:192.0.2.1)，转成纯 IPv4
// - 否则按原样返回（包括真 IPv6）
func NormalizeIP(input string) string {
	if input == "" {
		return ""
	}

	ip := strings.TrimSpace(strings.Split(input, ",")[0])

	if h, _, err := net.SplitHostPort(ip); err == nil {
		ip = h
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}
	return parsed.String()
}

// GetClientIP 从Gin上下文获取客户端IP
// 优先级: X-Forwarded-For > X-Real-IP > 连接地址
func GetClientIP(c *gin.Context) string {
	raw := c.GetHeader("X-Forwarded-For")
	if raw == "" {
		raw = c.GetHeader("X-Real-IP")
	}
	if raw == "" {
		raw = c.ClientIP()
	}
	return NormalizeIP(raw)
}
