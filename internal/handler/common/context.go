package common

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/repo/mysql"
)

// gin 上下文键，由中间件写入
const (
	CtxUser      = "current_user"
	CtxUserID    = "user_id"
	CtxUsername  = "username"
	CtxRequestID = "request_id"
)

// 分页参数
const (
	MaxPageSize = 100
	paramPage   = "page"
	paramSize   = "page_size"
	paramOrder  = "order_by"
	paramDesc   = "desc"
)

// CurrentUser 认证中间件写入的当前用户，未登录时为 nil
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(CtxUser); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// UserID 当前用户ID，未登录时为 0
func UserID(c *gin.Context) uint {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// RequestID 请求ID
func RequestID(c *gin.Context) string {
	return c.GetString(CtxRequestID)
}

// ParsePageQuery 解析 page/page_size/order_by/desc，其余查询参数全部作为过滤条件
func ParsePageQuery(c *gin.Context) (mysql.PageQuery, error) {
	q := mysql.PageQuery{Page: mysql.DefaultPage, PageSize: mysql.DefaultPageSize, Filters: mysql.Filters{}}

	if v := c.Query(paramPage); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, invalidParam(paramPage, "must be an integer >= 1")
		}
		q.Page = page
	}
	if v := c.Query(paramSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > MaxPageSize {
			return q, invalidParam(paramSize, "must be an integer between 1 and 100")
		}
		q.PageSize = size
	}
	q.OrderBy = c.Query(paramOrder)
	if v := c.Query(paramDesc); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return q, invalidParam(paramDesc, "must be a boolean")
		}
		q.Desc = desc
	}

	for key, values := range c.Request.URL.Query() {
		switch key {
		case paramPage, paramSize, paramOrder, paramDesc:
			continue
		}
		if len(values) == 0 {
			continue
		}
		// 重复出现的参数视为 in 列表
		if len(values) > 1 {
			q.Filters[key] = strings.Join(values, ",")
			continue
		}
		q.Filters[key] = values[0]
	}
	return q, nil
}

// ParseUintParam 解析路径中的数字ID
func ParseUintParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalidParam(name, "must be a positive integer")
	}
	return uint(id), nil
}

func invalidParam(field, message string) error {
	return system.NewServiceValidationError("Invalid query parameter", []system.ValidationError{{Field: field, Message: message}})
}
