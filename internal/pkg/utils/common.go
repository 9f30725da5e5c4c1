/*
 * @date: 2026.10.16
 * @description: 通用的工具包
 * @func:
 *   - WithClientIP / GetClientIPFromContext 标准上下文中的客户端IP
 */

package utils

import (
	"context"
)

// ContextKey 标准上下文键类型，避免裸字符串键冲突
type ContextKey string

// ContextKeyClientIP 标准上下文中存储客户端IP的统一键
const ContextKeyClientIP ContextKey = "client_ip"

// WithClientIP 把客户端IP写入标准上下文
// 来源：日志中间件在请求进入时写入，service 层以下通过 GetClientIPFromContext 读取
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, clientIP)
}

// GetClientIPFromContext 从标准上下文读取客户端IP，不存在返回空字符串
func GetClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}
