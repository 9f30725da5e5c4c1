package ragflow

import (
	"errors"
	"fmt"
	"net/http"

	"raggate/internal/model/system"
)

// Kind RAGFlow 调用失败类别
type Kind string

const (
	KindTimeout     Kind = "timeout"     // 请求超时
	KindRequest     Kind = "request"     // 传输失败或 4xx
	KindUnavailable Kind = "unavailable" // 5xx
	KindResponse    Kind = "response"    // 响应 code != 0
	KindUnexpected  Kind = "unexpected"  // 其他错误(响应无法解析等)
)

// Error RAGFlow 调用错误，每次失败的调用只返回一个
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP状态码，传输失败时为 0
	Code    int // 响应中的 code，仅 KindResponse 有效
	Err     error
}

// Error 实现error接口
func (e *Error) Error() string {
	return e.Message
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus 网关对外返回的HTTP状态码
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindRequest:
		if e.Status >= 400 && e.Status < 500 {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case KindResponse:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// ServiceError 转换为统一业务错误，业务码固定 10001
func (e *Error) ServiceError() *system.ServiceError {
	detail := map[string]interface{}{"kind": string(e.Kind)}
	if e.Status != 0 {
		detail["status"] = e.Status
	}
	if e.Kind == KindResponse {
		detail["ragflow_code"] = e.Code
	}
	return &system.ServiceError{
		Code:       system.CodeUpstreamError,
		HTTPStatus: e.HTTPStatus(),
		Message:    e.Message,
		Detail:     detail,
		Err:        e.Err,
	}
}

// As 让 errors.As(err, &*system.ServiceError) 直接拿到转换结果
func (e *Error) As(target interface{}) bool {
	if se, ok := target.(**system.ServiceError); ok {
		*se = e.ServiceError()
		return true
	}
	return false
}

// IsKind 判断错误链中是否为指定类别的 RAGFlow 错误
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: "RAGFlow request timed out", Err: err}
}

func requestError(err error) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf("RAGFlow request failed: %v", err), Err: err}
}

func statusError(status int) *Error {
	kind := KindRequest
	if status >= http.StatusInternalServerError {
		kind = KindUnavailable
	}
	return &Error{Kind: kind, Message: fmt.Sprintf("RAGFlow HTTP error %d", status), Status: status}
}

func responseError(code int, message string) *Error {
	return &Error{Kind: KindResponse, Message: fmt.Sprintf("RAGFlow code error: %s", message), Code: code, Status: http.StatusOK}
}

func unexpectedError(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: fmt.Sprintf("Unexpected error: %v", err), Err: err}
}
