package setup

import (
	"gorm.io/gorm"

	"raggate/internal/config"
	systemHandler "raggate/internal/handler/system"
	pkgauth "raggate/internal/pkg/auth"
	"raggate/internal/pkg/logger"
	systemRepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/iam"
)

// BuildIAMModule 构建用户/角色/权限/邀请码模块
func BuildIAMModule(db *gorm.DB, cfg *config.Config, hasher pkgauth.PasswordHasher) (*IAMModule, error) {
	logger.WithFields(map[string]interface{}{
		"operation": "setup",
		"option":    "setup.iam.begin",
		"func_name": "setup.iam.BuildIAMModule",
	}).Info("开始构建IAM模块")

	// 1) 仓库
	userRepo, err := systemRepo.NewUserRepository(db)
	if err != nil {
		return nil, err
	}
	roleRepo, err := systemRepo.NewRoleRepository(db)
	if err != nil {
		return nil, err
	}
	permRepo, err := systemRepo.NewPermissionRepository(db)
	if err != nil {
		return nil, err
	}
	inviteRepo, err := systemRepo.NewInviteCodeRepository(db)
	if err != nil {
		return nil, err
	}

	// 2) 服务
	policy := pkgauth.NewPasswordPolicy(cfg.Security.Password.Complexity)
	userService, err := iam.NewUserService(db, userRepo, roleRepo, hasher, policy, cfg.Registration.DefaultRole)
	if err != nil {
		return nil, err
	}
	roleService, err := iam.NewRoleService(db, roleRepo, permRepo)
	if err != nil {
		return nil, err
	}
	permissionService, err := iam.NewPermissionService(db, permRepo)
	if err != nil {
		return nil, err
	}
	inviteService, err := iam.NewInviteCodeService(db, inviteRepo, cfg.Registration.InviteCodeLength)
	if err != nil {
		return nil, err
	}
	rbacService := iam.NewRBACService(db, userRepo)

	// 3) 处理器
	module := &IAMModule{
		UserHandler:       systemHandler.NewUserHandler(userService, rbacService),
		RoleHandler:       systemHandler.NewRoleHandler(roleService),
		PermissionHandler: systemHandler.NewPermissionHandler(permissionService),
		InviteCodeHandler: systemHandler.NewInviteCodeHandler(inviteService),
		UserService:       userService,
		RoleService:       roleService,
		PermissionService: permissionService,
		InviteCodeService: inviteService,
		RBACService:       rbacService,
		PasswordPolicy:    policy,
	}

	logger.WithFields(map[string]interface{}{
		"operation":  "setup",
		"option":     "setup.iam.done",
		"func_name":  "setup.iam.BuildIAMModule",
		"complexity": policy.Level(),
	}).Info("IAM模块构建完成")
	return module, nil
}
