package system

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/repo/mysql"
)

// RoleRepository 角色仓库
type RoleRepository struct {
	*mysql.Repository[model.Role]
}

// NewRoleRepository 创建角色仓库
func NewRoleRepository(db *gorm.DB) (*RoleRepository, error) {
	base, err := mysql.NewRepository[model.Role](db)
	if err != nil {
		return nil, err
	}
	return &RoleRepository{Repository: base}, nil
}

// GetByName 按角色名查询，不存在时返回 (nil, nil)
func (r *RoleRepository) GetByName(ctx context.Context, db *gorm.DB, name string) (*model.Role, error) {
	return r.GetOrNone(ctx, db, "name", name)
}

// GetByIDs 批量加载角色，任一ID不存在返回 NotFound
func (r *RoleRepository) GetByIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]*model.Role, error) {
	items, err := r.GetByPKs(ctx, db, mysql.ToAny(ids))
	if err != nil {
		return nil, err
	}
	roles := make([]*model.Role, len(items))
	for i := range items {
		roles[i] = &items[i]
	}
	return roles, nil
}

// ReplacePermissions 整体替换角色权限
func (r *RoleRepository) ReplacePermissions(ctx context.Context, db *gorm.DB, role *model.Role, perms []*model.Permission) error {
	if err := db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms); err != nil {
		return fmt.Errorf("replace permissions of role %s failed: %w", role.Name, err)
	}
	role.Permissions = perms
	return nil
}

// AppendPermissions 追加权限
func (r *RoleRepository) AppendPermissions(ctx context.Context, db *gorm.DB, role *model.Role, perms ...*model.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Model(role).Association("Permissions").Append(perms); err != nil {
		return fmt.Errorf("append permissions to role %s failed: %w", role.Name, err)
	}
	return nil
}

// PermissionRepository 权限仓库
type PermissionRepository struct {
	*mysql.Repository[model.Permission]
}

// NewPermissionRepository 创建权限仓库
func NewPermissionRepository(db *gorm.DB) (*PermissionRepository, error) {
	base, err := mysql.NewRepository[model.Permission](db)
	if err != nil {
		return nil, err
	}
	return &PermissionRepository{Repository: base}, nil
}

// GetByIDs 批量加载权限，任一ID不存在返回 NotFound
func (r *PermissionRepository) GetByIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]*model.Permission, error) {
	items, err := r.GetByPKs(ctx, db, mysql.ToAny(ids))
	if err != nil {
		return nil, err
	}
	perms := make([]*model.Permission, len(items))
	for i := range items {
		perms[i] = &items[i]
	}
	return perms, nil
}
