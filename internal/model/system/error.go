/**
 * 模型:错误定义
 * @date 2026.10.16
 * @description 业务错误类型。每类错误带业务码与HTTP状态码，handler 层统一映射为响应信封。
 *              错误之间按业务码比较，可直接 errors.Is(err, system.ErrNotFound)。
 * @func ServiceError, New*Error, AsServiceError
 */
package system

import (
	"errors"
	"fmt"
	"net/http"
)

// 业务码
const (
	CodeServiceError     = 10000
	CodeUpstreamError    = 10001
	CodeUnauthorized     = 40101
	CodePermissionDenied = 40301
	CodeNotFound         = 40401
	CodeConflict         = 40901
	CodeValidation       = 42201
	CodeTooManyRequests  = 42901
)

// ServiceError 业务错误
type ServiceError struct {
	Code       int         `json:"code"`             // 业务码
	HTTPStatus int         `json:"-"`                // HTTP状态码
	Message    string      `json:"message"`          // 对外消息
	Detail     interface{} `json:"detail,omitempty"` // 附加信息，仅调试模式或校验错误时返回
	Err        error       `json:"-"`                // 底层错误
}

// Error 实现error接口
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is 同一业务码视为同一类错误
func (e *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回携带 detail 的副本
func (e *ServiceError) WithDetail(detail interface{}) *ServiceError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// Wrap 返回携带底层错误的副本
func (e *ServiceError) Wrap(err error) *ServiceError {
	cp := *e
	cp.Err = err
	return &cp
}

// 各类错误的原型，用于 errors.Is 判断
var (
	ErrService          = &ServiceError{Code: CodeServiceError, HTTPStatus: http.StatusBadRequest, Message: "Service error"}
	ErrUnauthorized     = &ServiceError{Code: CodeUnauthorized, HTTPStatus: http.StatusUnauthorized, Message: "Authentication failed"}
	ErrPermissionDenied = &ServiceError{Code: CodePermissionDenied, HTTPStatus: http.StatusForbidden, Message: "Permission denied"}
	ErrNotFound         = &ServiceError{Code: CodeNotFound, HTTPStatus: http.StatusNotFound, Message: "Resource not found"}
	ErrConflict         = &ServiceError{Code: CodeConflict, HTTPStatus: http.StatusConflict, Message: "Resource conflict"}
	ErrValidation       = &ServiceError{Code: CodeValidation, HTTPStatus: http.StatusUnprocessableEntity, Message: "Invalid data"}
	ErrTooManyRequests  = &ServiceError{Code: CodeTooManyRequests, HTTPStatus: http.StatusTooManyRequests, Message: "Too many requests"}
)

func newFrom(proto *ServiceError, message string, detail interface{}) *ServiceError {
	e := *proto
	if message != "" {
		e.Message = message
	}
	e.Detail = detail
	return &e
}

// NewServiceError 通用业务错误(400)
func NewServiceError(message string, detail interface{}) *ServiceError {
	return newFrom(ErrService, message, detail)
}

// NewUnauthorizedError 认证失败(401)
func NewUnauthorizedError(message string) *ServiceError {
	return newFrom(ErrUnauthorized, message, nil)
}

// NewPermissionDeniedError 权限不足(403)
func NewPermissionDeniedError(message string) *ServiceError {
	return newFrom(ErrPermissionDenied, message, nil)
}

// NewNotFoundError 资源不存在(404)
func NewNotFoundError(message string, detail interface{}) *ServiceError {
	return newFrom(ErrNotFound, message, detail)
}

// NewConflictError 资源冲突(409)
func NewConflictError(message string, detail interface{}) *ServiceError {
	return newFrom(ErrConflict, message, detail)
}

// NewServiceValidationError 业务校验失败(422)
func NewServiceValidationError(message string, detail interface{}) *ServiceError {
	return newFrom(ErrValidation, message, detail)
}

// NewTooManyRequestsError 触发限流(默认429)，status 为 0 时沿用默认状态码
func NewTooManyRequestsError(message string, status int) *ServiceError {
	e := newFrom(ErrTooManyRequests, message, nil)
	if status > 0 {
		e.HTTPStatus = status
	}
	return e
}

// AsServiceError 从错误链中取出 ServiceError
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ValidationError 请求字段校验错误
type ValidationError struct {
	Field   string `json:"field"`   // 字段名
	Message string `json:"message"` // 错误消息
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
