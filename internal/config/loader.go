package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置文件
// configPath: 配置文件路径，如果为空则使用默认路径
// env: 环境标识，支持 development, test, production
func LoadConfig(configPath, env string) (*Config, error) {
	// 开发环境下先加载 .env，使其中的变量参与后续的环境变量覆盖
	if env == "" || env == "development" {
		if err := LoadDotEnv(); err != nil {
			return nil, err
		}
	}

	if env == "" {
		env = getEnvFromEnvironment()
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// 根据环境选择配置文件
	configFile := getConfigFileName(configPath, env)
	v.SetConfigFile(configFile)

	// 设置环境变量前缀
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.App.ConfigDir == "" {
		config.App.ConfigDir = configPath
	}
	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	GlobalConfig = &config

	return &config, nil
}

// getEnvFromEnvironment 从环境变量获取环境标识
func getEnvFromEnvironment() string {
	env := os.Getenv(EnvPrefix + "_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development" // 默认开发环境
	}
	return env
}

// getDefaultConfigPath 获取默认配置文件路径
func getDefaultConfigPath() string {
	if configPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); configPath != "" {
		return configPath
	}
	return "configs"
}

// getConfigFileName 根据环境获取配置文件名
func getConfigFileName(configPath, env string) string {
	var configFile string

	switch env {
	case "production", "prod":
		configFile = filepath.Join(configPath, "config.prod.yaml")
	case "test", "testing":
		configFile = filepath.Join(configPath, "config.test.yaml")
	default:
		configFile = filepath.Join(configPath, "config.yaml")
	}

	// 检查文件是否存在，如果不存在则使用默认配置文件
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		defaultConfig := filepath.Join(configPath, "config.yaml")
		if _, err := os.Stat(defaultConfig); err == nil {
			return defaultConfig
		}
	}

	return configFile
}

// bindEnvironmentVariables 绑定环境变量
func bindEnvironmentVariables(v *viper.Viper) {
	// 数据库配置
	_ = v.BindEnv("database.driver", "RAGGATE_DB_DRIVER")
	_ = v.BindEnv("database.mysql.host", "RAGGATE_MYSQL_HOST")
	_ = v.BindEnv("database.mysql.port", "RAGGATE_MYSQL_PORT")
	_ = v.BindEnv("database.mysql.username", "RAGGATE_MYSQL_USERNAME")
	_ = v.BindEnv("database.mysql.password", "RAGGATE_MYSQL_PASSWORD")
	_ = v.BindEnv("database.mysql.database", "RAGGATE_MYSQL_DATABASE")
	_ = v.BindEnv("database.sqlite.path", "RAGGATE_SQLITE_PATH")

	_ = v.BindEnv("database.redis.enabled", "RAGGATE_REDIS_ENABLED")
	_ = v.BindEnv("database.redis.host", "RAGGATE_REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "RAGGATE_REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "RAGGATE_REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.database", "RAGGATE_REDIS_DATABASE")

	// JWT配置
	_ = v.BindEnv("security.jwt.secret", "RAGGATE_JWT_SECRET")
	_ = v.BindEnv("security.jwt.access_token_expire", "RAGGATE_JWT_ACCESS_TOKEN_EXPIRE")
	_ = v.BindEnv("security.jwt.refresh_token_expire", "RAGGATE_JWT_REFRESH_TOKEN_EXPIRE")
	_ = v.BindEnv("security.jwt.issuer", "RAGGATE_JWT_ISSUER")
	_ = v.BindEnv("security.password.complexity", "RAGGATE_PASSWORD_COMPLEXITY")
	_ = v.BindEnv("security.cors.allow_origins", "RAGGATE_CORS_ALLOW_ORIGINS")

	// RAGFlow
	_ = v.BindEnv("ragflow.base_url", "RAGGATE_RAGFLOW_BASE_URL")
	_ = v.BindEnv("ragflow.api_key", "RAGGATE_RAGFLOW_API_KEY")
	_ = v.BindEnv("ragflow.version", "RAGGATE_RAGFLOW_VERSION")

	// 归档存储与队列
	_ = v.BindEnv("storage.minio.endpoint", "RAGGATE_MINIO_ENDPOINT")
	_ = v.BindEnv("storage.minio.access_key", "RAGGATE_MINIO_ACCESS_KEY")
	_ = v.BindEnv("storage.minio.secret_key", "RAGGATE_MINIO_SECRET_KEY")
	_ = v.BindEnv("storage.gcs.credentials_file", "RAGGATE_GCS_CREDENTIALS_FILE")
	_ = v.BindEnv("queue.rabbitmq.url", "RAGGATE_RABBITMQ_URL")
	_ = v.BindEnv("queue.pubsub.project_id", "RAGGATE_PUBSUB_PROJECT_ID")

	// 服务器配置
	_ = v.BindEnv("server.host", "RAGGATE_SERVER_HOST")
	_ = v.BindEnv("server.port", "RAGGATE_SERVER_PORT")
	_ = v.BindEnv("server.mode", "RAGGATE_SERVER_MODE")

	// 应用配置
	_ = v.BindEnv("app.environment", "RAGGATE_APP_ENVIRONMENT")
	_ = v.BindEnv("app.debug", "RAGGATE_APP_DEBUG")
}

// applyDefaults 为配置文件中缺省的字段补默认值
func applyDefaults(config *Config) {
	if config == nil {
		return
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "mysql"
	}
	if config.Security.Password.Complexity == "" {
		config.Security.Password.Complexity = "HIGH"
	}
	if config.Security.JWT.AccessTokenExpire <= 0 {
		config.Security.JWT.AccessTokenExpire = 30 * time.Minute
	}
	if config.Security.JWT.RefreshTokenExpire <= 0 {
		config.Security.JWT.RefreshTokenExpire = 7 * 24 * time.Hour
	}
	if config.Security.RateLimit.Strategy == "" {
		config.Security.RateLimit.Strategy = "memory"
	}
	if config.Security.RateLimit.StatusCode == 0 {
		config.Security.RateLimit.StatusCode = 429
	}
	if config.Security.RateLimit.Message == "" {
		config.Security.RateLimit.Message = "too many requests"
	}

	if strings.TrimSpace(config.RAGFlow.Version) == "" {
		config.RAGFlow.Version = "v1"
	}
	if config.RAGFlow.Timeout <= 0 {
		config.RAGFlow.Timeout = 30 * time.Second
	}
	if config.RAGFlow.DownloadTimeout <= 0 {
		config.RAGFlow.DownloadTimeout = 5 * time.Minute
	}

	if config.Queue.ParseChannel == "" {
		config.Queue.ParseChannel = "raggate.document.parse"
	}
	if config.Queue.PubSub.SubscriptionSuffix == "" {
		config.Queue.PubSub.SubscriptionSuffix = "-sub"
	}
	if config.Queue.RabbitMQ.PrefetchCount <= 0 {
		config.Queue.RabbitMQ.PrefetchCount = 1
	}

	if config.Registration.DefaultRole == "" {
		config.Registration.DefaultRole = "user"
	}
	if config.Registration.InviteCodeLength <= 0 {
		config.Registration.InviteCodeLength = 12
	}
	if config.Server.MaxUploadSize <= 0 {
		config.Server.MaxUploadSize = 32 << 20
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	// 验证服务器配置
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.Mode != "debug" && config.Server.Mode != "release" && config.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	// 验证数据库配置
	switch config.Database.Driver {
	case "mysql":
		if config.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if config.Database.MySQL.Database == "" {
			return fmt.Errorf("mysql database name is required")
		}
	case "sqlite":
		if config.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("invalid database driver: %s", config.Database.Driver)
	}

	if config.Database.Redis.Enabled && config.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	// 验证JWT配置
	if config.Security.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if len(config.Security.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters long")
	}

	validComplexity := []string{"LOW", "MEDIUM", "HIGH"}
	if !contains(validComplexity, strings.ToUpper(config.Security.Password.Complexity)) {
		return fmt.Errorf("invalid password complexity: %s", config.Security.Password.Complexity)
	}

	validStrategies := []string{"memory", "redis"}
	if !contains(validStrategies, config.Security.RateLimit.Strategy) {
		return fmt.Errorf("invalid rate limit strategy: %s", config.Security.RateLimit.Strategy)
	}
	if config.Security.RateLimit.Strategy == "redis" && config.Security.RateLimit.Enabled && !config.Database.Redis.Enabled {
		return fmt.Errorf("redis rate limit strategy requires database.redis.enabled")
	}

	// 验证日志配置
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, config.Log.Level) {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Log.Format) {
		return fmt.Errorf("invalid log format: %s", config.Log.Format)
	}

	validLogOutputs := []string{"stdout", "stderr", "file"}
	if !contains(validLogOutputs, config.Log.Output) {
		return fmt.Errorf("invalid log output: %s", config.Log.Output)
	}

	if config.Log.Output == "file" && config.Log.FilePath == "" {
		return fmt.Errorf("log file path is required when output is file")
	}

	// RAGFlow 后端
	if strings.TrimSpace(config.RAGFlow.BaseURL) == "" {
		return fmt.Errorf("ragflow base_url is required")
	}

	if config.Storage.Enabled {
		validBackends := []string{"minio", "gcs"}
		if !contains(validBackends, config.Storage.Backend) {
			return fmt.Errorf("invalid storage backend: %s", config.Storage.Backend)
		}
	}

	if config.Queue.Enabled {
		validQueues := []string{"rabbitmq", "pubsub", "memory"}
		if !contains(validQueues, config.Queue.Backend) {
			return fmt.Errorf("invalid queue backend: %s", config.Queue.Backend)
		}
	}

	return nil
}

// contains 检查切片是否包含指定元素
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}

// MustLoadConfig 加载配置，如果失败则panic
func MustLoadConfig(configPath, env string) *Config {
	config, err := LoadConfig(configPath, env)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return config
}

// ReloadConfig 重新加载配置
func ReloadConfig(configPath, env string) error {
	if GlobalConfig == nil {
		return fmt.Errorf("global config is not initialized")
	}

	config, err := LoadConfig(configPath, env)
	if err != nil {
		return err
	}

	GlobalConfig = config
	return nil
}

// GetEnv 获取当前环境
func GetEnv() string {
	if GlobalConfig != nil {
		return GlobalConfig.App.Environment
	}
	return getEnvFromEnvironment()
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	if GlobalConfig != nil {
		return GlobalConfig.App.IsDevelopment()
	}
	return GetEnv() == "development"
}
