package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testConfigYAML = `
server:
  host: "localhost"
  port: 8080
  mode: "test"
  read_timeout: 30s
  write_timeout: 30s

database:
  driver: "sqlite"
  sqlite:
    path: ":memory:"
  mysql:
    host: "localhost"
    port: 3306
    username: "rag"
    password: "rag_pass"
    database: "raggate"
    charset: "utf8mb4"
    parse_time: true
    loc: "Local"

log:
  level: "info"
  format: "json"
  output: "stdout"

security:
  jwt:
    secret: "test_jwt_secret_key_at_least_32_chars"
    issuer: "raggate-test"
    access_token_expire: 30m
    refresh_token_expire: 168h
  password:
    complexity: "HIGH"

ragflow:
  base_url: "http://ragflow.local/"
  api_key: "ragflow-key"

app:
  name: "raggate"
  environment: "test"
  debug: true
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.test.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return dir
}

// TestLoadConfig 测试配置加载与默认值补齐
func TestLoadConfig(t *testing.T) {
	dir := writeTestConfig(t, testConfigYAML)

	config, err := LoadConfig(dir, "test")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", config.Server.Port)
	}
	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got '%s'", config.Database.Driver)
	}
	if config.RAGFlow.Version != "v1" {
		t.Errorf("Expected default ragflow version v1, got '%s'", config.RAGFlow.Version)
	}
	if config.RAGFlow.Timeout != 30*time.Second {
		t.Errorf("Expected default ragflow timeout 30s, got %v", config.RAGFlow.Timeout)
	}
	if config.Registration.DefaultRole != "user" {
		t.Errorf("Expected default role 'user', got '%s'", config.Registration.DefaultRole)
	}
	if config.Registration.InviteCodeLength != 12 {
		t.Errorf("Expected invite code length 12, got %d", config.Registration.InviteCodeLength)
	}
	if config.App.ConfigDir != dir {
		t.Errorf("Expected config dir '%s', got '%s'", dir, config.App.ConfigDir)
	}
	if GetConfig() != config {
		t.Error("Expected global config to be set")
	}
}

// TestLoadConfigWithEnvVars 测试环境变量覆盖
func TestLoadConfigWithEnvVars(t *testing.T) {
	dir := writeTestConfig(t, testConfigYAML)

	t.Setenv("RAGGATE_SERVER_PORT", "9090")
	t.Setenv("RAGGATE_RAGFLOW_API_KEY", "from-env")
	t.Setenv("RAGGATE_JWT_SECRET", "env_jwt_secret_key_with_32_chars_min")

	config, err := LoadConfig(dir, "test")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Expected server port 9090 (from env), got %d", config.Server.Port)
	}
	if config.RAGFlow.APIKey != "from-env" {
		t.Errorf("Expected ragflow api key from env, got '%s'", config.RAGFlow.APIKey)
	}
	if config.Security.JWT.Secret != "env_jwt_secret_key_with_32_chars_min" {
		t.Errorf("Expected JWT secret from env, got '%s'", config.Security.JWT.Secret)
	}
}

// TestConfigValidation 测试配置校验
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "invalid port",
			mutate:   func(c *Config) { c.Server.Port = 70000 },
			errorMsg: "invalid server port",
		},
		{
			name:     "short jwt secret",
			mutate:   func(c *Config) { c.Security.JWT.Secret = "short" },
			errorMsg: "at least 32 characters",
		},
		{
			name:     "unknown complexity",
			mutate:   func(c *Config) { c.Security.Password.Complexity = "EXTREME" },
			errorMsg: "invalid password complexity",
		},
		{
			name:     "missing ragflow base url",
			mutate:   func(c *Config) { c.RAGFlow.BaseURL = " " },
			errorMsg: "ragflow base_url is required",
		},
		{
			name:     "unknown database driver",
			mutate:   func(c *Config) { c.Database.Driver = "postgres" },
			errorMsg: "invalid database driver",
		},
		{
			name: "redis limiter without redis",
			mutate: func(c *Config) {
				c.Security.RateLimit.Enabled = true
				c.Security.RateLimit.Strategy = "redis"
			},
			errorMsg: "requires database.redis.enabled",
		},
		{
			name: "unknown storage backend",
			mutate: func(c *Config) {
				c.Storage.Enabled = true
				c.Storage.Backend = "s3"
			},
			errorMsg: "invalid storage backend",
		},
		{
			name: "file output without path",
			mutate: func(c *Config) {
				c.Log.Output = "file"
				c.Log.FilePath = ""
			},
			errorMsg: "log file path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validBaseConfig()
			tt.mutate(c)
			err := validateConfig(c)
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Expected error but got none")
				return
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error message to contain '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

func validBaseConfig() *Config {
	c := &Config{
		Server:   ServerConfig{Port: 8080, Mode: "test"},
		Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: ":memory:"}},
		Log:      LogConfig{Level: "info", Format: "json", Output: "stdout"},
		Security: SecurityConfig{
			JWT: JWTConfig{Secret: "test_jwt_secret_key_at_least_32_chars"},
		},
		RAGFlow: RAGFlowConfig{BaseURL: "http://ragflow.local"},
	}
	applyDefaults(c)
	return c
}

// TestEnvManager 测试环境变量管理器
func TestEnvManager(t *testing.T) {
	em := NewEnvManager("RAGGATE_T")

	t.Setenv("RAGGATE_T_NAME", "gateway")
	t.Setenv("RAGGATE_T_SIZE", "42")
	t.Setenv("RAGGATE_T_ON", "true")
	t.Setenv("RAGGATE_T_WAIT", "5s")
	t.Setenv("RAGGATE_T_LIST", "a, b,,c")

	if val := em.GetString("name", "x"); val != "gateway" {
		t.Errorf("Expected 'gateway', got '%s'", val)
	}
	if val := em.GetInt("size", 0); val != 42 {
		t.Errorf("Expected 42, got %d", val)
	}
	if val := em.GetBool("on", false); !val {
		t.Errorf("Expected true, got %t", val)
	}
	if val := em.GetDuration("wait", 0); val != 5*time.Second {
		t.Errorf("Expected 5s, got %v", val)
	}
	if val := em.GetStringSlice("list", nil); strings.Join(val, "|") != "a|b|c" {
		t.Errorf("Expected [a b c], got %v", val)
	}
	if val := em.GetString("missing", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}
	if em.Exists("missing") {
		t.Error("Expected environment variable to not exist")
	}
}

// TestLoadDotEnv 测试 .env 文件加载不覆盖已有变量
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("RAGGATE_DOTENV_A=file\nRAGGATE_DOTENV_B=file\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("RAGGATE_DOTENV_B", "process")
	t.Cleanup(func() { os.Unsetenv("RAGGATE_DOTENV_A") })

	if err := LoadDotEnv(file, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if v := os.Getenv("RAGGATE_DOTENV_A"); v != "file" {
		t.Errorf("Expected 'file', got '%s'", v)
	}
	if v := os.Getenv("RAGGATE_DOTENV_B"); v != "process" {
		t.Errorf("Expected existing value to win, got '%s'", v)
	}
}

// TestConfigHelperMethods 测试辅助方法
func TestConfigHelperMethods(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8000}
	if addr := s.GetAddress(); addr != "0.0.0.0:8000" {
		t.Errorf("Expected address '0.0.0.0:8000', got '%s'", addr)
	}

	r := RAGFlowConfig{BaseURL: "http://ragflow:9380/"}
	if u := r.GetAPIBaseURL(); u != "http://ragflow:9380/api/v1" {
		t.Errorf("Expected api base url with default version, got '%s'", u)
	}
	r.Version = "v2"
	if u := r.GetAPIBaseURL(); u != "http://ragflow:9380/api/v2" {
		t.Errorf("Expected api base url with v2, got '%s'", u)
	}

	m := MySQLConfig{Username: "u", Password: "p", Host: "db", Port: 3306, Database: "rag"}
	if u := m.GetMigrateURL(); u != "mysql://u:p@tcp(db:3306)/rag?multiStatements=true&parseTime=true" {
		t.Errorf("Unexpected migrate url '%s'", u)
	}

	a := AppConfig{Environment: "development"}
	if !a.IsDevelopment() || a.IsProduction() {
		t.Error("Expected development environment")
	}
}

// TestIsConfigFile 测试监听器的文件过滤
func TestIsConfigFile(t *testing.T) {
	if !isConfigFile("/etc/raggate/config.prod.yaml") {
		t.Error("Expected config.prod.yaml to be watched")
	}
	if isConfigFile("configs/permissions.yaml") {
		t.Error("Expected permissions.yaml to be ignored")
	}
}
