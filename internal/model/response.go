/**
 * 模型:响应模型
 * @date 2026.10.16
 * @description 统一响应信封、分页结构与对外 DTO。
 *              DTO 只从已预加载的实体转换，不会触发额外查询。
 */
package model

import "time"

// Response 统一响应信封，code 为 0 表示成功
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail"`
	Data    interface{} `json:"data"`
}

// OK 成功响应
func OK(data interface{}) Response {
	return Response{Code: 0, Message: "", Detail: map[string]interface{}{}, Data: data}
}

// PageData 分页结构
type PageData[T any] struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Items    []T   `json:"items"`
}

// NewPageData 创建分页结构，items 为 nil 时输出空数组
func NewPageData[T any](items []T, total int64, page, pageSize int) PageData[T] {
	if items == nil {
		items = []T{}
	}
	return PageData[T]{Total: total, Page: page, PageSize: pageSize, Items: items}
}

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// UserInfo 用户信息
type UserInfo struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Nickname    string    `json:"nickname"`
	Avatar      string    `json:"avatar"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUserInfo 从用户实体构造DTO，UpdatedAt 缺失时取当前时间
func NewUserInfo(u *User) UserInfo {
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		Nickname:    u.Nickname,
		Avatar:      u.Avatar,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		Roles:       u.RoleNames(),
		Permissions: u.PermissionNames(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   updated,
	}
}

// RoleInfo 角色信息
type RoleInfo struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRoleInfo 从角色实体构造DTO
func NewRoleInfo(r *Role) RoleInfo {
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return RoleInfo{
		ID:          r.ID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Permissions: r.PermissionNames(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   updated,
	}
}

// BatchItemResult 批量操作中单个目标的结果
type BatchItemResult struct {
	ID      uint   `json:"id"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// PasswordRules 当前密码复杂度规则
type PasswordRules struct {
	Level          string `json:"level"`
	MinLength      int    `json:"min_length"`
	RequireUpper   bool   `json:"require_upper"`
	RequireLower   bool   `json:"require_lower"`
	RequireDigits  bool   `json:"require_digits"`
	RequireSymbols bool   `json:"require_symbols"`
	Symbols        string `json:"symbols,omitempty"`
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Timestamp  string            `json:"timestamp"`
}
