package auth

import (
	"context"
	"fmt"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/logger"
	"raggate/internal/service/crud"
	"raggate/internal/service/iam"
)

// RegistrationService 邀请码注册
type RegistrationService struct {
	*iam.UserService
	invites *iam.InviteCodeService
}

// NewRegistrationService 创建注册服务
func NewRegistrationService(users *iam.UserService, invites *iam.InviteCodeService) (*RegistrationService, error) {
	if users == nil || invites == nil {
		return nil, fmt.Errorf("registration service requires user and invite code services")
	}
	return &RegistrationService{UserService: users, invites: invites}, nil
}

// Register 校验密码后，在同一事务中检查邀请码、创建用户、分配默认角色并消费邀请码
func (s *RegistrationService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if req.Password1 != req.Password2 {
		return nil, system.NewServiceValidationError("Passwords do not match", map[string]interface{}{"field": "password2"})
	}
	if err := s.ValidatePassword(req.Password1); err != nil {
		return nil, err
	}

	var user *model.User
	err := crud.WithTx(ctx, s.DB(ctx), func(ctx context.Context) error {
		if err := s.invites.CheckUsable(ctx, req.InviteCode); err != nil {
			return err
		}
		var err error
		user, err = s.NewUser(ctx, req.Username, req.Password1, "", true, false)
		if err != nil {
			return err
		}
		return s.invites.Consume(ctx, req.InviteCode, user.ID)
	})
	if err != nil {
		logger.LogWarn(err.Error(), "", 0, "", "user_register", "POST", map[string]interface{}{
			"operation": "register",
			"username":  req.Username,
			"timestamp": logger.NowFormatted(),
		})
		return nil, err
	}

	logger.LogBusinessOperation("user_register", user.ID, user.Username, "", "", "success", "用户注册成功", map[string]interface{}{
		"invite_code": req.InviteCode,
		"timestamp":   logger.NowFormatted(),
	})
	return s.GetByPK(ctx, user.ID, true)
}
