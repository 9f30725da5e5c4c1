package config

import (
	"fmt"
	"strings"
	"time"
)

// Config 应用配置结构体 [这里的字段和配置文件中一级字段保持一致，否则会没有值]
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`             // 服务器配置
	Database     DatabaseConfig     `yaml:"database" mapstructure:"database"`         // 数据库配置
	Log          LogConfig          `yaml:"log" mapstructure:"log"`                   // 日志配置
	Security     SecurityConfig     `yaml:"security" mapstructure:"security"`         // 安全配置
	RAGFlow      RAGFlowConfig      `yaml:"ragflow" mapstructure:"ragflow"`           // RAGFlow后端配置
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`           // 文档归档存储配置
	Queue        QueueConfig        `yaml:"queue" mapstructure:"queue"`               // 异步任务队列配置
	Registration RegistrationConfig `yaml:"registration" mapstructure:"registration"` // 注册配置
	App          AppConfig          `yaml:"app" mapstructure:"app"`                   // 应用配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`                         // 服务器主机地址
	Port           int           `yaml:"port" mapstructure:"port"`                         // 服务器端口
	Mode           string        `yaml:"mode" mapstructure:"mode"`                         // 运行模式: debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 读取超时时间
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 写入超时时间
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // 空闲超时时间
	MaxHeaderBytes int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"` // 最大请求头字节数
	MaxUploadSize  int64         `yaml:"max_upload_size" mapstructure:"max_upload_size"`   // multipart 上传内存上限(字节)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string       `yaml:"driver" mapstructure:"driver"` // 数据库驱动: mysql, sqlite
	MySQL  MySQLConfig  `yaml:"mysql" mapstructure:"mysql"`   // MySQL配置
	SQLite SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"` // SQLite配置(开发/测试)
	Redis  RedisConfig  `yaml:"redis" mapstructure:"redis"`   // Redis配置
}

// MySQLConfig MySQL数据库配置
type MySQLConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`                             // 数据库主机
	Port            int           `yaml:"port" mapstructure:"port"`                             // 数据库端口
	Username        string        `yaml:"username" mapstructure:"username"`                     // 用户名
	Password        string        `yaml:"password" mapstructure:"password"`                     // 密码
	Database        string        `yaml:"database" mapstructure:"database"`                     // 数据库名
	Charset         string        `yaml:"charset" mapstructure:"charset"`                       // 字符集
	ParseTime       bool          `yaml:"parse_time" mapstructure:"parse_time"`                 // 是否解析时间
	Loc             string        `yaml:"loc" mapstructure:"loc"`                               // 时区
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`         // 最大空闲连接数
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`         // 最大打开连接数
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`   // 连接最大生存时间
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"` // 连接最大空闲时间
	LogLevel        string        `yaml:"log_level" mapstructure:"log_level"`                   // 日志级别
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`           // 数据库文件路径, ":memory:" 表示内存库
	LogLevel string `yaml:"log_level" mapstructure:"log_level"` // 日志级别
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`               // 是否启用Redis
	Host         string        `yaml:"host" mapstructure:"host"`                     // Redis主机
	Port         int           `yaml:"port" mapstructure:"port"`                     // Redis端口
	Password     string        `yaml:"password" mapstructure:"password"`             // Redis密码
	Database     int           `yaml:"database" mapstructure:"database"`             // Redis数据库索引
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`           // 连接池大小
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"` // 最小空闲连接数
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`     // 连接超时
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`     // 读取超时
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`   // 写入超时
	PoolTimeout  time.Duration `yaml:"pool_timeout" mapstructure:"pool_timeout"`     // 连接池超时
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`     // 空闲超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式: json, text
	Output     string `yaml:"output" mapstructure:"output"`           // 输出方式: stdout, stderr, file
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 保留的日志文件数量
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩日志文件
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`               // JWT配置
	Password  PasswordConfig  `yaml:"password" mapstructure:"password"`     // 密码策略
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`             // CORS配置
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"` // 限流配置
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret             string        `yaml:"secret" mapstructure:"secret"`                             // JWT密钥
	Issuer             string        `yaml:"issuer" mapstructure:"issuer"`                             // 签发者
	AccessTokenExpire  time.Duration `yaml:"access_token_expire" mapstructure:"access_token_expire"`   // 访问令牌过期时间
	RefreshTokenExpire time.Duration `yaml:"refresh_token_expire" mapstructure:"refresh_token_expire"` // 刷新令牌过期时间
}

// PasswordConfig 密码策略配置
type PasswordConfig struct {
	Complexity string `yaml:"complexity" mapstructure:"complexity"` // 复杂度: LOW, MEDIUM, HIGH
}

// CORSConfig CORS配置
type CORSConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`                     // 是否启用CORS
	AllowOrigins     []string      `yaml:"allow_origins" mapstructure:"allow_origins"`         // 允许的源
	AllowMethods     []string      `yaml:"allow_methods" mapstructure:"allow_methods"`         // 允许的方法
	AllowHeaders     []string      `yaml:"allow_headers" mapstructure:"allow_headers"`         // 允许的请求头
	ExposeHeaders    []string      `yaml:"expose_headers" mapstructure:"expose_headers"`       // 暴露的响应头
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials"` // 是否允许凭证
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age"`                     // 预检请求缓存时间
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled" mapstructure:"enabled"`                         // 是否启用限流
	Strategy          string   `yaml:"strategy" mapstructure:"strategy"`                       // 限流策略: memory, redis
	RequestsPerSecond int      `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 每秒请求数限制
	BurstSize         int      `yaml:"burst_size" mapstructure:"burst_size"`                   // 突发请求数
	AuthPerSecond     int      `yaml:"auth_per_second" mapstructure:"auth_per_second"`         // 认证接口每秒请求数
	AuthBurstSize     int      `yaml:"auth_burst_size" mapstructure:"auth_burst_size"`         // 认证接口突发请求数
	WindowSize        string   `yaml:"window_size" mapstructure:"window_size"`                 // 空闲桶清理窗口
	StatusCode        int      `yaml:"status_code" mapstructure:"status_code"`                 // 限流时返回的状态码
	Message           string   `yaml:"message" mapstructure:"message"`                         // 限流时返回的消息
	SkipPaths         []string `yaml:"skip_paths" mapstructure:"skip_paths"`                   // 跳过限流的路径
	SkipIPs           []string `yaml:"skip_ips" mapstructure:"skip_ips"`                       // 跳过限流的IP
}

// RAGFlowConfig RAGFlow后端配置
type RAGFlowConfig struct {
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`                 // RAGFlow服务地址
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`                   // API Key
	Version         string        `yaml:"version" mapstructure:"version"`                   // API版本, 默认 v1
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`                   // 默认请求超时
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"` // 下载请求超时
}

// StorageConfig 文档归档存储配置
type StorageConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"` // 是否归档上传文件
	Backend string      `yaml:"backend" mapstructure:"backend"` // 存储后端: minio, gcs
	MinIO   MinIOConfig `yaml:"minio" mapstructure:"minio"`     // MinIO配置
	GCS     GCSConfig   `yaml:"gcs" mapstructure:"gcs"`         // GCS配置
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`     // 服务地址
	AccessKey string `yaml:"access_key" mapstructure:"access_key"` // AccessKey
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"` // SecretKey
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`         // 存储桶
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`       // 是否使用HTTPS
}

// GCSConfig Google Cloud Storage配置
type GCSConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`                     // 存储桶
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`             // 项目ID(创建桶时需要)
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"` // 凭证文件路径
}

// QueueConfig 异步任务队列配置
type QueueConfig struct {
	Enabled      bool           `yaml:"enabled" mapstructure:"enabled"`             // 是否启用异步解析
	Backend      string         `yaml:"backend" mapstructure:"backend"`             // 队列后端: rabbitmq, pubsub
	ParseChannel string         `yaml:"parse_channel" mapstructure:"parse_channel"` // 文档解析任务通道
	RabbitMQ     RabbitMQConfig `yaml:"rabbitmq" mapstructure:"rabbitmq"`           // RabbitMQ配置
	PubSub       PubSubConfig   `yaml:"pubsub" mapstructure:"pubsub"`               // Pub/Sub配置
}

// RabbitMQConfig RabbitMQ配置
type RabbitMQConfig struct {
	URL             string `yaml:"url" mapstructure:"url"`                             // 连接地址
	QueueDurable    bool   `yaml:"queue_durable" mapstructure:"queue_durable"`         // 队列是否持久化
	QueueAutoDelete bool   `yaml:"queue_auto_delete" mapstructure:"queue_auto_delete"` // 队列是否自动删除
	PrefetchCount   int    `yaml:"prefetch_count" mapstructure:"prefetch_count"`       // 预取数量
}

// PubSubConfig Google Pub/Sub配置
type PubSubConfig struct {
	ProjectID          string `yaml:"project_id" mapstructure:"project_id"`                   // 项目ID
	CredentialsFile    string `yaml:"credentials_file" mapstructure:"credentials_file"`       // 凭证文件路径
	SubscriptionSuffix string `yaml:"subscription_suffix" mapstructure:"subscription_suffix"` // 订阅名后缀
}

// RegistrationConfig 注册配置
type RegistrationConfig struct {
	DefaultRole      string `yaml:"default_role" mapstructure:"default_role"`             // 新用户默认角色
	InviteCodeLength int    `yaml:"invite_code_length" mapstructure:"invite_code_length"` // 邀请码长度
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string         `yaml:"name" mapstructure:"name"`               // 应用名称
	Version     string         `yaml:"version" mapstructure:"version"`         // 应用版本
	Environment string         `yaml:"environment" mapstructure:"environment"` // 运行环境
	Debug       bool           `yaml:"debug" mapstructure:"debug"`             // 是否调试模式(错误详情是否返回给调用方)
	Timezone    string         `yaml:"timezone" mapstructure:"timezone"`       // 时区
	ConfigDir   string         `yaml:"config_dir" mapstructure:"config_dir"`   // 配置目录(permissions.yaml 所在目录)
	Features    FeaturesConfig `yaml:"features" mapstructure:"features"`       // 功能开关配置
}

// FeaturesConfig 功能开关配置
type FeaturesConfig struct {
	UserRegistration bool `yaml:"user_registration" mapstructure:"user_registration"` // 用户注册功能
	AuditLog         bool `yaml:"audit_log" mapstructure:"audit_log"`                 // 审计日志功能
}

// GetAddress 获取服务器完整地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment 判断是否为开发环境
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction 判断是否为生产环境
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// IsTest 判断是否为测试环境
func (a *AppConfig) IsTest() bool {
	return a.Environment == "test"
}

// GetMySQLDSN 获取MySQL数据源名称
func (m *MySQLConfig) GetMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		m.Username, m.Password, m.Host, m.Port, m.Database, m.Charset, m.ParseTime, m.Loc)
}

// GetMigrateURL 获取 golang-migrate 使用的 MySQL 连接串
func (m *MySQLConfig) GetMigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?multiStatements=true&parseTime=true",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// GetRedisAddress 获取Redis地址
func (r *RedisConfig) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GetAPIBaseURL 拼接带版本号的 RAGFlow API 地址
func (r *RAGFlowConfig) GetAPIBaseURL() string {
	version := r.Version
	if version == "" {
		version = "v1"
	}
	return fmt.Sprintf("%s/api/%s", strings.TrimRight(r.BaseURL, "/"), version)
}
