package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"raggate/internal/config"
	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/auth"
	"raggate/internal/pkg/database"
	sysrepo "raggate/internal/repo/mysql/system"
	"raggate/internal/service/iam"
)

type fixture struct {
	db       *gorm.DB
	hasher   *auth.PasswordManager
	jwt      *auth.JWTManager
	login    *LoginService
	register *RegistrationService
	users    *iam.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewSQLiteConnection(&config.SQLiteConfig{Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	userRepo, err := sysrepo.NewUserRepository(db)
	require.NoError(t, err)
	roleRepo, err := sysrepo.NewRoleRepository(db)
	require.NoError(t, err)
	codeRepo, err := sysrepo.NewInviteCodeRepository(db)
	require.NoError(t, err)

	hasher := auth.NewPasswordManager(&auth.PasswordConfig{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	jwtManager := auth.NewJWTManager("unit-test-secret-key-with-32-characters", "raggate-test", 15*time.Minute, 24*time.Hour)

	users, err := iam.NewUserService(db, userRepo, roleRepo, hasher, auth.NewPasswordPolicy("HIGH"), model.RoleUser)
	require.NoError(t, err)
	invites, err := iam.NewInviteCodeService(db, codeRepo, 12)
	require.NoError(t, err)
	register, err := NewRegistrationService(users, invites)
	require.NoError(t, err)

	return &fixture{
		db:       db,
		hasher:   hasher,
		jwt:      jwtManager,
		login:    NewLoginService(db, userRepo, hasher, jwtManager),
		register: register,
		users:    users,
	}
}

func (f *fixture) seedInvite(t *testing.T, code string) {
	t.Helper()
	require.NoError(t, f.db.Create(&model.InviteCode{Code: code}).Error)
}

func TestRegister_InviteCodeScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedInvite(t, "ABC12345")

	user, err := f.register.Register(ctx, &model.RegisterRequest{
		Username:   "alice",
		Password1:  "Aa1!aaaa",
		Password2:  "Aa1!aaaa",
		InviteCode: "ABC12345",
	})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.Equal(t, []string{model.RoleUser}, user.RoleNames())

	var invite model.InviteCode
	require.NoError(t, f.db.First(&invite, "code = ?", "ABC12345").Error)
	assert.True(t, invite.Used)
	require.NotNil(t, invite.UsedBy)
	assert.Equal(t, user.ID, *invite.UsedBy)

	// 同一邀请码再次注册失败，且不会留下用户
	_, err = f.register.Register(ctx, &model.RegisterRequest{
		Username:   "bob",
		Password1:  "Aa1!aaaa",
		Password2:  "Aa1!aaaa",
		InviteCode: "ABC12345",
	})
	require.ErrorIs(t, err, system.ErrConflict)
	assert.NotErrorIs(t, err, system.ErrValidation)
	assert.Equal(t, "邀请码已被使用", err.Error())

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Where("username = ?", "bob").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegister_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedInvite(t, "CODE0001")
	f.seedInvite(t, "CODE0002")

	_, err := f.register.Register(ctx, &model.RegisterRequest{
		Username: "alice", Password1: "Aa1!aaaa", Password2: "Aa1!aaab", InviteCode: "CODE0001",
	})
	require.ErrorIs(t, err, system.ErrValidation)
	assert.Equal(t, "Passwords do not match", err.Error())

	_, err = f.register.Register(ctx, &model.RegisterRequest{
		Username: "alice", Password1: "aaaaaaaa", Password2: "aaaaaaaa", InviteCode: "CODE0001",
	})
	assert.ErrorIs(t, err, system.ErrValidation)

	_, err = f.register.Register(ctx, &model.RegisterRequest{
		Username: "alice", Password1: "Aa1!aaaa", Password2: "Aa1!aaaa", InviteCode: "MISSING1",
	})
	require.ErrorIs(t, err, system.ErrConflict)
	assert.Equal(t, "邀请码不存在", err.Error())

	_, err = f.register.Register(ctx, &model.RegisterRequest{
		Username: "alice", Password1: "Aa1!aaaa", Password2: "Aa1!aaaa", InviteCode: "CODE0001",
	})
	require.NoError(t, err)

	// 用户名重复时邀请码不会被消费
	_, err = f.register.Register(ctx, &model.RegisterRequest{
		Username: "alice", Password1: "Aa1!aaaa", Password2: "Aa1!aaaa", InviteCode: "CODE0002",
	})
	assert.ErrorIs(t, err, system.ErrConflict)

	var invite model.InviteCode
	require.NoError(t, f.db.First(&invite, "code = ?", "CODE0002").Error)
	assert.False(t, invite.Used)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.users.CreateUser(ctx, &model.CreateUserRequest{Username: "alice", Password: "Aa1!aaaa"})
	require.NoError(t, err)
	inactive := false
	_, err = f.users.CreateUser(ctx, &model.CreateUserRequest{Username: "frozen", Password: "Aa1!aaaa", IsActive: &inactive})
	require.NoError(t, err)

	pair, loggedIn, err := f.login.Login(ctx, "alice", "Aa1!aaaa")
	require.NoError(t, err)
	assert.Equal(t, "alice", loggedIn.Username)
	assert.NotZero(t, loggedIn.ID)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.RefreshToken)

	user, err := f.login.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = f.login.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, system.ErrUnauthorized)

	for _, tc := range []struct{ name, username, password string }{
		{"unknown user", "ghost", "Aa1!aaaa"},
		{"wrong password", "alice", "Aa1!aaab"},
		{"disabled", "frozen", "Aa1!aaaa"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.login.Login(ctx, tc.username, tc.password)
			assert.ErrorIs(t, err, system.ErrUnauthorized)
			assert.True(t, IsUnauthorized(err))
		})
	}
}

func TestLogin_RehashesOutdatedPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.users.CreateUser(ctx, &model.CreateUserRequest{Username: "alice", Password: "Aa1!aaaa"})
	require.NoError(t, err)

	// 模拟旧参数生成的哈希
	legacy := auth.NewPasswordManager(&auth.PasswordConfig{Memory: 4 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	oldHash, err := legacy.HashPassword("Aa1!aaaa")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", user.ID).Update("hashed_password", oldHash).Error)
	require.True(t, f.hasher.NeedsRehash(oldHash))

	_, _, err = f.login.Login(ctx, "alice", "Aa1!aaaa")
	require.NoError(t, err)

	var stored model.User
	require.NoError(t, f.db.First(&stored, user.ID).Error)
	assert.NotEqual(t, oldHash, stored.Password)
	assert.False(t, f.hasher.NeedsRehash(stored.Password))
	ok, err := f.hasher.VerifyPassword("Aa1!aaaa", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	// 已是当前参数时不再改写
	_, _, err = f.login.Login(ctx, "alice", "Aa1!aaaa")
	require.NoError(t, err)
	var again model.User
	require.NoError(t, f.db.First(&again, user.ID).Error)
	assert.Equal(t, stored.Password, again.Password)

	// 密码错误时不触发重新哈希
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", user.ID).Update("hashed_password", oldHash).Error)
	_, _, err = f.login.Login(ctx, "alice", "Aa1!aaab")
	require.ErrorIs(t, err, system.ErrUnauthorized)
	require.NoError(t, f.db.First(&again, user.ID).Error)
	assert.Equal(t, oldHash, again.Password)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.CreateUser(ctx, &model.CreateUserRequest{Username: "alice", Password: "Aa1!aaaa"})
	require.NoError(t, err)

	pair, _, err := f.login.Login(ctx, "alice", "Aa1!aaaa")
	require.NoError(t, err)

	refreshed, err := f.login.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refreshed.RefreshToken)
	claims := f.jwt.VerifyToken(refreshed.AccessToken)
	require.NotNil(t, claims)
	assert.Equal(t, auth.TokenTypeAccess, claims.Type)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)

	// 访问令牌不能用于刷新
	_, err = f.login.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, system.ErrUnauthorized)
	assert.Equal(t, "Token invalid or expired", err.Error())

	expired := auth.NewJWTManager("unit-test-secret-key-with-32-characters", "raggate-test", time.Minute, -time.Minute)
	stale, err := expired.CreateRefreshToken("1")
	require.NoError(t, err)
	_, err = f.login.Refresh(ctx, stale)
	assert.ErrorIs(t, err, system.ErrUnauthorized)
}
