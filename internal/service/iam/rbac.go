/**
 * IAM服务:基于角色的访问控制
 * @date 2026.10.16
 * @description 角色/权限检查。超级用户先于一切检查直接放行；
 *              用户记录不存在视为认证失败，缺少角色或权限视为权限不足。
 * @func HasRole, HasPerm, CheckAnyRole, IsUserActive
 */
package iam

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/model/system"
	sysrepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/crud"
)

// RBACService 基于角色的访问控制服务
type RBACService struct {
	db    *gorm.DB
	users *sysrepo.UserRepository
}

// NewRBACService 创建RBAC服务实例
func NewRBACService(db *gorm.DB, users *sysrepo.UserRepository) *RBACService {
	return &RBACService{db: db, users: users}
}

func (s *RBACService) loadUser(ctx context.Context, userID uint, preload string) (*model.User, error) {
	user, err := s.users.GetOrNone(ctx, crud.Conn(ctx, s.db), "id", userID, preload)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		return nil, system.NewUnauthorizedError("User not found")
	}
	return user, nil
}

// HasRole 用户是否具有指定角色，角色名大小写敏感
func (s *RBACService) HasRole(ctx context.Context, userID uint, roleName string) error {
	user, err := s.loadUser(ctx, userID, sysrepo.PreloadRoles)
	if err != nil {
		return err
	}
	if user.IsSuperuser || user.HasRole(roleName) {
		return nil
	}
	return system.NewPermissionDeniedError(fmt.Sprintf("Role %s required", roleName))
}

// HasPerm 用户角色权限并集中是否含指定权限
func (s *RBACService) HasPerm(ctx context.Context, userID uint, permName string) error {
	user, err := s.loadUser(ctx, userID, sysrepo.PreloadPermissions)
	if err != nil {
		return err
	}
	if user.IsSuperuser || user.HasPermission(permName) {
		return nil
	}
	return system.NewPermissionDeniedError(fmt.Sprintf("Permission %s required", permName))
}

// CheckAnyRole 具有任一角色即通过
func (s *RBACService) CheckAnyRole(ctx context.Context, userID uint, roleNames []string) error {
	user, err := s.loadUser(ctx, userID, sysrepo.PreloadRoles)
	if err != nil {
		return err
	}
	if user.IsSuperuser {
		return nil
	}
	for _, name := range roleNames {
		if user.HasRole(name) {
			return nil
		}
	}
	return system.NewPermissionDeniedError(fmt.Sprintf("One of roles %v required", roleNames))
}

// IsUserActive 用户是否启用，不存在返回 false
func (s *RBACService) IsUserActive(ctx context.Context, userID uint) (bool, error) {
	user, err := s.users.GetOrNone(ctx, crud.Conn(ctx, s.db), "id", userID)
	if err != nil {
		return false, err
	}
	return user != nil && user.IsActive, nil
}

// CurrentUser 加载带角色权限的当前用户，供 /users/me 使用
func (s *RBACService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	return s.loadUser(ctx, userID, sysrepo.PreloadPermissions)
}
