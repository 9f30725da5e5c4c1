/**
 * IAM服务:角色与权限
 * @date 2026.10.16
 * @description 角色增删改查与权限集合维护；权限只读，由 init-perms 命令写入。
 *              EnsureRolePermissions 供初始化命令使用，重复执行结果一致。
 */
package iam

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/repo/mysql"
	sysrepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/crud"
)

// 系统内置角色，不允许删除
var builtinRoles = map[string]struct{}{
	model.RoleUser:  {},
	model.RoleAdmin: {},
}

// RoleService 角色服务
type RoleService struct {
	*crud.Service[model.Role]
	roles *sysrepo.RoleRepository
	perms *sysrepo.PermissionRepository
}

// NewRoleService 创建角色服务
func NewRoleService(db *gorm.DB, roles *sysrepo.RoleRepository, perms *sysrepo.PermissionRepository) (*RoleService, error) {
	if roles == nil || perms == nil {
		return nil, fmt.Errorf("role service requires role and permission repositories")
	}
	base, err := crud.New(db, roles.Repository,
		crud.WithPreload[model.Role]("Permissions"),
		crud.WithCheckBeforeCreate[model.Role](func(ctx context.Context, db *gorm.DB, data map[string]interface{}) error {
			name, _ := data["name"].(string)
			existing, err := roles.GetByName(ctx, db, name)
			if err != nil {
				return err
			}
			if existing != nil {
				return system.NewConflictError("Role already exists", map[string]interface{}{"name": name})
			}
			return nil
		}))
	if err != nil {
		return nil, err
	}
	return &RoleService{Service: base, roles: roles, perms: perms}, nil
}

// CreateRole 创建角色并设置权限
func (s *RoleService) CreateRole(ctx context.Context, req *model.CreateRoleRequest) (*model.Role, error) {
	var role *model.Role
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		var err error
		role, err = s.Create(ctx, map[string]interface{}{
			"name":         req.Name,
			"display_name": req.DisplayName,
		}, false)
		if err != nil {
			return err
		}
		return s.setPermissions(ctx, role, req.PermissionIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByPK(ctx, role.ID, true)
}

// UpdateRole 修改显示名，PermissionIDs 非 nil 时整体替换权限
func (s *RoleService) UpdateRole(ctx context.Context, roleID uint, req *model.UpdateRoleRequest) (*model.Role, error) {
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		data := map[string]interface{}{}
		if req.DisplayName != nil {
			data["display_name"] = *req.DisplayName
		}
		role, err := s.Update(ctx, roleID, data, false)
		if err != nil {
			return err
		}
		if req.PermissionIDs == nil {
			return nil
		}
		return s.setPermissions(ctx, role, req.PermissionIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByPK(ctx, roleID, true)
}

func (s *RoleService) setPermissions(ctx context.Context, role *model.Role, ids []uint) error {
	db := s.DB(ctx)
	perms, err := s.perms.GetByIDs(ctx, db, ids)
	if err != nil {
		return err
	}
	return s.roles.ReplacePermissions(ctx, db, role, perms)
}

// DeleteRole 删除角色，内置角色不可删除
func (s *RoleService) DeleteRole(ctx context.Context, roleID uint) (*model.Role, error) {
	role, err := s.GetByPK(ctx, roleID, false)
	if err != nil {
		return nil, err
	}
	if _, ok := builtinRoles[role.Name]; ok {
		return nil, system.NewServiceValidationError("Built-in role cannot be deleted", map[string]interface{}{"name": role.Name})
	}
	return s.Delete(ctx, roleID, true)
}

// EnsureRolePermissions 确保角色与权限存在并补齐缺失的关联，返回新建的关联数
func (s *RoleService) EnsureRolePermissions(ctx context.Context, mapping map[string][]string) (int, error) {
	linked := 0
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		db := s.DB(ctx)

		names := make([]string, 0, len(mapping)+len(builtinRoles))
		for name := range builtinRoles {
			if _, ok := mapping[name]; !ok {
				names = append(names, name)
			}
		}
		for name := range mapping {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, roleName := range names {
			role, _, err := s.roles.GetOrCreate(ctx, db, "name", roleName, nil)
			if err != nil {
				return err
			}
			current, err := s.roles.GetByPK(ctx, db, role.ID, mysql.WithPreload("Permissions"))
			if err != nil {
				return err
			}
			have := make(map[string]struct{}, len(current.Permissions))
			for _, p := range current.Permissions {
				have[p.Name] = struct{}{}
			}

			var missing []*model.Permission
			for _, permName := range mapping[roleName] {
				if _, ok := have[permName]; ok {
					continue
				}
				perm, _, err := s.perms.GetOrCreate(ctx, db, "name", permName, nil)
				if err != nil {
					return err
				}
				have[permName] = struct{}{}
				missing = append(missing, perm)
			}
			if err := s.roles.AppendPermissions(ctx, db, current, missing...); err != nil {
				return err
			}
			linked += len(missing)
		}
		return nil
	})
	return linked, err
}

// PermissionService 权限服务，只读
type PermissionService struct {
	*crud.Service[model.Permission]
}

// NewPermissionService 创建权限服务
func NewPermissionService(db *gorm.DB, perms *sysrepo.PermissionRepository) (*PermissionService, error) {
	if perms == nil {
		return nil, fmt.Errorf("permission service requires a repository")
	}
	base, err := crud.New(db, perms.Repository)
	if err != nil {
		return nil, err
	}
	return &PermissionService{Service: base}, nil
}
