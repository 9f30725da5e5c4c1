package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raggate/internal/app/gateway/setup"
	"raggate/internal/config"
	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/database"
	"raggate/internal/pkg/logger"
)

const testPassword = "Aa1!aaaa"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine  *gin.Engine
	modules *setup.Modules
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test", MaxUploadSize: 1 << 20},
		Security: config.SecurityConfig{
			JWT:      config.JWTConfig{Secret: "router-test-secret", AccessTokenExpire: time.Minute, RefreshTokenExpire: time.Hour},
			Password: config.PasswordConfig{Complexity: "HIGH"},
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				Strategy:          "memory",
				RequestsPerSecond: 1000,
				BurstSize:         1000,
				AuthPerSecond:     1,
				AuthBurstSize:     3,
				StatusCode:        http.StatusTooManyRequests,
				Message:           "too many requests",
			},
		},
		RAGFlow:      config.RAGFlowConfig{BaseURL: "http://127.0.0.1:1", Version: "v1", Timeout: time.Second},
		Registration: config.RegistrationConfig{DefaultRole: model.RoleUser, InviteCodeLength: 12},
		App:          config.AppConfig{Features: config.FeaturesConfig{UserRegistration: true}},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewSQLiteConnection(&config.SQLiteConfig{Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	cfg := testConfig()
	modules, err := setup.BuildModules(&setup.Infra{DB: db}, cfg)
	require.NoError(t, err)
	t.Cleanup(modules.Close)

	r := NewRouter(cfg, modules, NewHealthChecker(db, nil))
	r.SetupRoutes()
	return &testServer{engine: r.GetEngine(), modules: modules}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) createUser(t *testing.T, name string, superuser bool) *model.User {
	t.Helper()
	u, err := s.modules.IAM.UserService.CreateUser(context.Background(), &model.CreateUserRequest{
		Username:    name,
		Password:    testPassword,
		IsSuperuser: superuser,
	})
	require.NoError(t, err)
	return u
}

func (s *testServer) login(t *testing.T, name string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": name, "password": testPassword},
		"X-Forwarded-For", "10.0.0."+fmt.Sprint(len(name)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok model.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)

	w, env = s.do(t, http.MethodGet, "/api/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var status model.HealthStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "ready", status.Status)
	assert.Equal(t, "up", status.Components["database"])
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = s.do(t, http.MethodGet, "/api/health", "", nil, "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "root", true)
	s.createUser(t, "bob", false)
	rootToken := s.login(t, "root")
	bobToken := s.login(t, "bob")

	// 未携带令牌
	w, env := s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, system.CodeUnauthorized, env.Code)

	// 无效令牌
	w, _ = s.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/users/me", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.UserInfo
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "bob", me.Username)
	assert.Equal(t, []string{model.RoleUser}, me.Roles)

	// 非管理员访问IAM
	w, env = s.do(t, http.MethodGet, "/api/v1/iam/users", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, system.CodePermissionDenied, env.Code)

	// 缺少 dataset:read 权限，不会触达上游
	w, _ = s.do(t, http.MethodGet, "/api/v1/ragflow/datasets", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 超级用户
	w, env = s.do(t, http.MethodGet, "/api/v1/iam/users?page_size=1", rootToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page model.PageData[model.UserInfo]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Items, 1)
}

func TestUserListIgnoresPasswordHashFilter(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "root", true)
	s.createUser(t, "bob", false)
	rootToken := s.login(t, "root")

	total := func(query string) int64 {
		t.Helper()
		w, env := s.do(t, http.MethodGet, "/api/v1/iam/users?"+query, rootToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var page model.PageData[model.UserInfo]
		require.NoError(t, json.Unmarshal(env.Data, &page))
		return page.Total
	}

	// 匹配与不匹配哈希前缀的结果相同，说明条件被忽略
	assert.EqualValues(t, 2, total("hashed_password__like=%24argon2id%24"))
	assert.EqualValues(t, 2, total("hashed_password__like=NOPE_NOT_IN_HASH"))
	assert.EqualValues(t, 2, total("Password__gt=%24"))
	assert.EqualValues(t, 1, total("username=bob"))
}

func TestDisabledUserRejected(t *testing.T) {
	s := newTestServer(t)
	root := s.createUser(t, "root", true)
	bob := s.createUser(t, "bob", false)
	bobToken := s.login(t, "bob")

	results := s.modules.IAM.UserService.SetUsersActive(context.Background(), root.ID, []uint{bob.ID}, false)
	require.Len(t, results, 1)

	w, env := s.do(t, http.MethodGet, "/api/v1/users/me", bobToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, system.CodeUnauthorized, env.Code)
}

func TestRegisterWithInviteCode(t *testing.T) {
	s := newTestServer(t)
	codes, err := s.modules.IAM.InviteCodeService.CreateInviteCodes(context.Background(), 1, 12)
	require.NoError(t, err)

	body := gin.H{"username": "carol", "password1": testPassword, "password2": testPassword, "invite_code": codes[0].Code}
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", body, "X-Forwarded-For", "10.9.0.1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var info model.UserInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "carol", info.Username)

	// 邀请码只能使用一次
	body["username"] = "dave"
	w, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", body, "X-Forwarded-For", "10.9.0.2")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, system.CodeConflict, env.Code)

	s.login(t, "carol")
}

func TestLoginAuditRecordsUserID(t *testing.T) {
	s := newTestServer(t)
	carol := s.createUser(t, "carol", false)

	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "carol", "password": "wrong-password"},
		"X-Forwarded-For", "10.8.0.1")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	s.login(t, "carol")

	results := map[string]interface{}{}
	for _, e := range hook.AllEntries() {
		if e.Data["type"] == logger.AuditLog && e.Data["action"] == "login" {
			results[e.Data["result"].(string)] = e.Data["user_id"]
		}
	}
	assert.Equal(t, carol.ID, results["success"])
	assert.Equal(t, uint(0), results["failed"])
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{"username": "ghost", "password": "wrong"}

	for i := 0; i < 3; i++ {
		w, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body, "X-Forwarded-For", "192.0.2.10")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body, "X-Forwarded-For", "192.0.2.10")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, system.CodeTooManyRequests, env.Code)

	// 其他IP不受影响
	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", body, "X-Forwarded-For", "192.0.2.11")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordRulesPublic(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/auth/password-rules", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules model.PasswordRules
	require.NoError(t, json.Unmarshal(env.Data, &rules))
	assert.Equal(t, "HIGH", rules.Level)
}
