/*
 * @date 2026.10.16
 * @description 登录与令牌刷新服务
 * @func:
 * 1.登录
 * 2.刷新访问令牌
 * 3.解析访问令牌对应的用户
 */
package auth

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/auth"
	"raggate/internal/pkg/logger"
	sysrepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/crud"
)

// 对外统一的认证失败消息，不区分用户不存在与密码错误
const (
	msgInvalidCredentials = "Invalid username or password"
	msgUserDisabled       = "User is disabled"
	msgTokenInvalid       = "Token invalid or expired"
)

// LoginService 登录服务
type LoginService struct {
	db         *gorm.DB
	users      *sysrepo.UserRepository
	hasher     auth.PasswordHasher
	jwtManager *auth.JWTManager
}

// NewLoginService 创建登录服务实例
func NewLoginService(db *gorm.DB, users *sysrepo.UserRepository, hasher auth.PasswordHasher, jwtManager *auth.JWTManager) *LoginService {
	return &LoginService{
		db:         db,
		users:      users,
		hasher:     hasher,
		jwtManager: jwtManager,
	}
}

// Login 用户名密码登录，返回令牌对与登录用户
func (s *LoginService) Login(ctx context.Context, username, password string) (*auth.TokenPair, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, crud.Conn(ctx, s.db), username)
	if err != nil {
		logger.LogError(err, "", 0, "", "user_login", "POST", map[string]interface{}{
			"operation": "login",
			"username":  username,
			"timestamp": logger.NowFormatted(),
		})
		return nil, nil, err
	}
	if user == nil {
		logger.LogWarn("user not found", "", 0, "", "user_login", "POST", map[string]interface{}{
			"operation": "login",
			"username":  username,
			"timestamp": logger.NowFormatted(),
		})
		return nil, nil, system.NewUnauthorizedError(msgInvalidCredentials)
	}

	ok, err := s.hasher.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		logger.LogWarn("password is incorrect", "", user.ID, "", "user_login", "POST", map[string]interface{}{
			"operation": "login",
			"username":  user.Username,
			"timestamp": logger.NowFormatted(),
		})
		return nil, nil, system.NewUnauthorizedError(msgInvalidCredentials)
	}

	if !user.IsActive {
		logger.LogWarn("user account is disabled", "", user.ID, "", "user_login", "POST", map[string]interface{}{
			"operation": "login",
			"username":  user.Username,
			"timestamp": logger.NowFormatted(),
		})
		return nil, nil, system.NewUnauthorizedError(msgUserDisabled)
	}

	if s.hasher.NeedsRehash(user.Password) {
		s.rehash(ctx, user, password)
	}

	pair, err := s.jwtManager.CreateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	logger.LogBusinessOperation("user_login", user.ID, user.Username, "", "", "success", "用户登录成功", map[string]interface{}{
		"roles":     user.RoleNames(),
		"timestamp": logger.NowFormatted(),
	})
	return pair, user, nil
}

// rehash 按当前参数重新哈希旧密码，失败只记录日志不影响本次登录
func (s *LoginService) rehash(ctx context.Context, user *model.User, password string) {
	hashed, err := s.hasher.HashPassword(password)
	if err == nil {
		_, err = s.users.Update(ctx, crud.Conn(ctx, s.db), user, map[string]interface{}{"hashed_password": hashed})
	}
	if err != nil {
		logger.LogWarn("password rehash failed", "", user.ID, "", "user_login", "POST", map[string]interface{}{
			"operation": "rehash",
			"error":     err.Error(),
			"timestamp": logger.NowFormatted(),
		})
	}
}

// Refresh 用刷新令牌换取新的访问令牌，新令牌有效期与刷新令牌一致
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims := s.jwtManager.VerifyToken(refreshToken)
	if claims == nil || claims.Type != auth.TokenTypeRefresh {
		return nil, system.NewUnauthorizedError(msgTokenInvalid)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, system.NewUnauthorizedError(msgTokenInvalid)
	}
	user, err := s.users.GetOrNone(ctx, crud.Conn(ctx, s.db), "id", userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, system.NewUnauthorizedError(msgTokenInvalid)
	}

	access, err := s.jwtManager.CreateAccessToken(strconv.FormatUint(uint64(user.ID), 10), s.jwtManager.RefreshTokenTTL())
	if err != nil {
		return nil, err
	}
	return &auth.TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

// Authenticate 校验访问令牌并加载启用状态的用户，供中间件使用
func (s *LoginService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims := s.jwtManager.VerifyToken(accessToken)
	if claims == nil || claims.Type != auth.TokenTypeAccess {
		return nil, system.NewUnauthorizedError(msgTokenInvalid)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, system.NewUnauthorizedError(msgTokenInvalid)
	}
	user, err := s.users.GetOrNone(ctx, crud.Conn(ctx, s.db), "id", userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, system.NewUnauthorizedError(msgTokenInvalid)
	}
	if !user.IsActive {
		return nil, system.NewUnauthorizedError(msgUserDisabled)
	}
	return user, nil
}

// IsUnauthorized 错误是否为认证失败
func IsUnauthorized(err error) bool {
	return errors.Is(err, system.ErrUnauthorized)
}
