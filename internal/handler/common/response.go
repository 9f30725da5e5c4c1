/**
 * 处理器公共:响应与错误映射
 * @date 2026.10.16
 * @description 所有接口统一使用 model.Response 信封输出。
 *              Fail 把任意错误映射为信封：业务错误保持自身业务码与状态码，
 *              参数绑定错误返回 422 并附字段明细，其余错误记录日志后返回 500。
 * @func OK, Created, Fail, BindError
 */
package common

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/utils"
)

const msgInternalError = "internal server error"

var debugMode atomic.Bool

// SetDebug 调试模式下 500 错误会返回底层错误信息
func SetDebug(debug bool) {
	debugMode.Store(debug)
}

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, model.OK(data))
}

// Created 201 成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, model.OK(data))
}

// Fail 把错误写成响应信封
func Fail(c *gin.Context, err error) {
	if se, ok := system.AsServiceError(err); ok {
		abortWith(c, se.HTTPStatus, se.Code, se.Message, detailOf(se.Detail))
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		abortWith(c, http.StatusUnprocessableEntity, system.CodeValidation, "Invalid data", fieldErrors(verrs))
		return
	}

	logger.LogError(err, RequestID(c), UserID(c), utils.GetClientIP(c), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
		"operation":  "handle_request",
		"user_agent": c.GetHeader("User-Agent"),
		"timestamp":  logger.NowFormatted(),
	})
	var detail interface{} = map[string]interface{}{}
	if debugMode.Load() {
		detail = map[string]interface{}{"error": err.Error()}
	}
	abortWith(c, http.StatusInternalServerError, http.StatusInternalServerError, msgInternalError, detail)
}

// BindError 请求体无法解析(非字段校验失败)时返回 422
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		Fail(c, err)
		return
	}
	abortWith(c, http.StatusUnprocessableEntity, system.CodeValidation, "Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})
}

func abortWith(c *gin.Context, status, code int, message string, detail interface{}) {
	c.AbortWithStatusJSON(status, model.Response{
		Code:    code,
		Message: message,
		Detail:  detail,
		Data:    nil,
	})
}

func detailOf(detail interface{}) interface{} {
	if detail == nil {
		return map[string]interface{}{}
	}
	return detail
}

// fieldErrors 字段校验失败明细，字段名取 json 标签之前的结构体字段名
func fieldErrors(verrs validator.ValidationErrors) []system.ValidationError {
	out := make([]system.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		msg := "failed on '" + fe.Tag() + "'"
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		out = append(out, system.ValidationError{Field: fe.Field(), Message: msg})
	}
	return out
}
