/**
 * IAM服务:用户管理
 * @date 2026.10.16
 * @description 用户创建、更新、角色分配与批量启用/禁用/删除。
 *              批量操作逐个处理，单个失败只记录在该项结果中，不影响其余目标。
 * @func
 * 	1.CreateUser / NewUser 创建用户并分配默认角色
 * 	2.UpdateUser / AssignRoles 修改
 * 	3.SetUsersActive / DeleteUsers 批量操作
 */
package iam

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/auth"
	"raggate/internal/pkg/logger"
	"raggate/internal/repo/mysql"
	sysrepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/crud"
)

// 批量操作失败原因
const (
	ReasonSelf            = "cannot modify yourself"
	ReasonNotFound        = "not found"
	ReasonSuperuser       = "cannot disable superuser"
	ReasonSuperuserDelete = "cannot delete superuser"
)

// UserService 用户服务
type UserService struct {
	*crud.Service[model.User]
	users       *sysrepo.UserRepository
	roles       *sysrepo.RoleRepository
	hasher      auth.PasswordHasher
	policy      *auth.PasswordPolicy
	defaultRole string
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB, users *sysrepo.UserRepository, roles *sysrepo.RoleRepository,
	hasher auth.PasswordHasher, policy *auth.PasswordPolicy, defaultRole string) (*UserService, error) {
	if users == nil || roles == nil {
		return nil, fmt.Errorf("user service requires user and role repositories")
	}
	base, err := crud.New(db, users.Repository, crud.WithPreload[model.User](sysrepo.PreloadPermissions))
	if err != nil {
		return nil, err
	}
	if hasher == nil {
		hasher = auth.NewPasswordManager(nil)
	}
	if policy == nil {
		policy = auth.NewPasswordPolicy("")
	}
	if defaultRole == "" {
		defaultRole = model.RoleDefault
	}
	return &UserService{
		Service:     base,
		users:       users,
		roles:       roles,
		hasher:      hasher,
		policy:      policy,
		defaultRole: defaultRole,
	}, nil
}

// Policy 当前密码复杂度策略
func (s *UserService) Policy() *auth.PasswordPolicy { return s.policy }

// ValidatePassword 复杂度校验，失败返回 422
func (s *UserService) ValidatePassword(password string) error {
	if err := s.policy.Validate(password); err != nil {
		return system.NewServiceValidationError(err.Error(), map[string]interface{}{"field": "password"})
	}
	return nil
}

// NewUser 在 ctx 的事务中创建用户并追加默认角色；用户名重复返回 409
func (s *UserService) NewUser(ctx context.Context, username, password, nickname string, active, superuser bool) (*model.User, error) {
	db := s.DB(ctx)
	exists, err := s.users.UsernameExists(ctx, db, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, system.NewConflictError("Username already exists", map[string]interface{}{"username": username})
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:    username,
		Nickname:    nickname,
		Password:    hash,
		IsActive:    active,
		IsSuperuser: superuser,
	}
	if err := s.users.Create(ctx, db, user); err != nil {
		if mysql.IsDuplicateKey(err) {
			return nil, system.NewConflictError("Username already exists", map[string]interface{}{"username": username})
		}
		return nil, err
	}

	role, _, err := s.roles.GetOrCreate(ctx, db, "name", s.defaultRole, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default role %s: %w", s.defaultRole, err)
	}
	if err := s.users.AppendRoles(ctx, db, user, role); err != nil {
		return nil, err
	}
	user.Roles = []*model.Role{role}
	return user, nil
}

// CreateUser 管理员创建用户，is_active 缺省为 true
func (s *UserService) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if err := s.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var user *model.User
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		var err error
		user, err = s.NewUser(ctx, req.Username, req.Password, req.Nickname, active, req.IsSuperuser)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetByPK(ctx, user.ID, true)
}

// UpdateUser 局部更新用户资料
func (s *UserService) UpdateUser(ctx context.Context, userID uint, req *model.UpdateUserRequest) (*model.User, error) {
	if _, err := s.Update(ctx, userID, req.ToMap(), true); err != nil {
		return nil, err
	}
	return s.GetByPK(ctx, userID, true)
}

// AssignRoles 整体替换用户角色，任一角色不存在返回 404
func (s *UserService) AssignRoles(ctx context.Context, userID uint, roleIDs []uint) (*model.User, error) {
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		db := s.DB(ctx)
		user, err := s.users.GetByPK(ctx, db, userID)
		if err != nil {
			return err
		}
		roles, err := s.roles.GetByIDs(ctx, db, roleIDs)
		if err != nil {
			return err
		}
		return s.users.ReplaceRoles(ctx, db, user, roles)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByPK(ctx, userID, true)
}

// SetUsersActive 批量启用/禁用，结果顺序与输入一致
func (s *UserService) SetUsersActive(ctx context.Context, actorID uint, ids []uint, active bool) []model.BatchItemResult {
	results := make([]model.BatchItemResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, s.setActive(ctx, actorID, id, active))
	}
	logger.LogBusinessOperation("set_users_active", actorID, "", "", "", "success", "批量修改用户状态", map[string]interface{}{
		"operation": "set_users_active",
		"active":    active,
		"count":     len(ids),
		"timestamp": logger.NowFormatted(),
	})
	return results
}

func (s *UserService) setActive(ctx context.Context, actorID, id uint, active bool) model.BatchItemResult {
	if id == actorID {
		return failed(id, system.NewServiceValidationError(ReasonSelf, nil))
	}
	user, err := s.users.GetOrNone(ctx, s.DB(ctx), "id", id)
	if err != nil {
		return failed(id, err)
	}
	if user == nil {
		return failed(id, system.NewNotFoundError(ReasonNotFound, nil))
	}
	if !active && user.IsSuperuser {
		return failed(id, system.NewServiceValidationError(ReasonSuperuser, nil))
	}
	if _, err := s.users.Update(ctx, s.DB(ctx), user, map[string]interface{}{"is_active": active}); err != nil {
		return failed(id, err)
	}
	return model.BatchItemResult{ID: id, Success: true}
}

// DeleteUsers 批量删除，结果顺序与输入一致
func (s *UserService) DeleteUsers(ctx context.Context, actorID uint, ids []uint) []model.BatchItemResult {
	results := make([]model.BatchItemResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, s.deleteOne(ctx, actorID, id))
	}
	logger.LogBusinessOperation("delete_users", actorID, "", "", "", "success", "批量删除用户", map[string]interface{}{
		"operation": "delete_users",
		"count":     len(ids),
		"timestamp": logger.NowFormatted(),
	})
	return results
}

func (s *UserService) deleteOne(ctx context.Context, actorID, id uint) model.BatchItemResult {
	if id == actorID {
		return failed(id, system.NewServiceValidationError(ReasonSelf, nil))
	}
	user, err := s.users.GetOrNone(ctx, s.DB(ctx), "id", id)
	if err != nil {
		return failed(id, err)
	}
	if user == nil {
		return failed(id, system.NewNotFoundError(ReasonNotFound, nil))
	}
	if user.IsSuperuser {
		return failed(id, system.NewServiceValidationError(ReasonSuperuserDelete, nil))
	}
	if _, err := s.Delete(ctx, id, true); err != nil {
		return failed(id, err)
	}
	return model.BatchItemResult{ID: id, Success: true}
}

func failed(id uint, err error) model.BatchItemResult {
	reason := err.Error()
	if se, ok := system.AsServiceError(err); ok {
		reason = se.Message
	}
	return model.BatchItemResult{ID: id, Success: false, Reason: reason}
}
