/**
 * 模型:用户模型
 * @date 2026.10.16
 * @description 用户、角色关联。User 通过 auth_user_roles 与 Role 多对多。
 * @func User, HasRole, HasPermission, RoleNames, PermissionNames
 */
package model

import (
	"sort"
	"time"
)

// 系统内置角色
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleDefault = RoleUser
)

// User 用户模型
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`                // 用户ID
	Username    string    `json:"username" gorm:"uniqueIndex;not null;size:64"`      // 用户名，唯一
	Nickname    string    `json:"nickname" gorm:"size:64"`                           // 昵称
	Avatar      string    `json:"avatar" gorm:"size:255"`                            // 头像URL
	Password    string    `json:"-" gorm:"column:hashed_password;not null;size:255"` // argon2id 哈希，不序列化
	IsActive    bool      `json:"is_active" gorm:"not null"`                         // 是否启用，创建时由服务层置为 true
	IsSuperuser bool      `json:"is_superuser" gorm:"not null"`                      // 超级用户跳过所有角色/权限检查
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Roles []*Role `json:"roles,omitempty" gorm:"many2many:auth_user_roles;"`
}

// TableName 用户表名
func (User) TableName() string {
	return "auth_users"
}

// HasRole 角色名大小写敏感
func (u *User) HasRole(roleName string) bool {
	for _, role := range u.Roles {
		if role != nil && role.Name == roleName {
			return true
		}
	}
	return false
}

// HasPermission 需要预加载 Roles.Permissions
func (u *User) HasPermission(permissionName string) bool {
	for _, role := range u.Roles {
		if role == nil {
			continue
		}
		for _, perm := range role.Permissions {
			if perm != nil && perm.Name == permissionName {
				return true
			}
		}
	}
	return false
}

// RoleNames 返回角色名列表
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		if role != nil {
			names = append(names, role.Name)
		}
	}
	return names
}

// PermissionNames 返回所有角色权限的并集，按名称排序
func (u *User) PermissionNames() []string {
	set := make(map[string]struct{})
	for _, role := range u.Roles {
		if role == nil {
			continue
		}
		for _, perm := range role.Permissions {
			if perm != nil {
				set[perm.Name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
