/**
 * 模型:角色与权限
 * @date 2026.10.16
 * @description Role 通过 auth_role_permissions 与 Permission 多对多，Users 为反向关联。
 */
package model

import "time"

// Role 角色模型
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`       // 角色ID
	Name        string    `json:"name" gorm:"uniqueIndex;not null;size:64"` // 角色名，唯一
	DisplayName string    `json:"display_name" gorm:"size:128"`             // 显示名称
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Permissions []*Permission `json:"permissions,omitempty" gorm:"many2many:auth_role_permissions;"`
	Users       []*User       `json:"-" gorm:"many2many:auth_user_roles;"`
}

// TableName 角色表名
func (Role) TableName() string {
	return "auth_roles"
}

// PermissionNames 角色拥有的权限名
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p != nil {
			names = append(names, p.Name)
		}
	}
	return names
}

// Permission 权限模型，名称形如 dataset:read
type Permission struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null;size:128"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Roles []*Role `json:"-" gorm:"many2many:auth_role_permissions;"`
}

// TableName 权限表名
func (Permission) TableName() string {
	return "auth_permissions"
}
