package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/swiftmeta/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	AccountJWT   JWTConfig          `mapstructure:"account_jwt"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Storage      StorageConfig      `mapstructure:"storage"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Security     SecurityConfig     `mapstructure:"security"`
	OTP          OTPConfig          `mapstructure:"otp"`
	Notification NotificationConfig `mapstructure:"notification"`
	Captcha      CaptchaConfig      `mapstructure:"captcha"`
	Ticket       TicketConfig       `mapstructure:"ticket"`
	Quiz         QuizConfig         `mapstructure:"quiz"`
	AI           AIConfig           `mapstructure:"ai"`
	News         NewsConfig         `mapstructure:"news"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// IsRelease 是否为生产模式
func (c ServerConfig) IsRelease() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "release")
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// OTPConfig 一次性验证码配置
type OTPConfig struct {
	Secret                string `mapstructure:"secret"`
	RegisterExpireMinutes int    `mapstructure:"register_expire_minutes"`
	LoginExpireMinutes    int    `mapstructure:"login_expire_minutes"`
	SendIntervalSeconds   int    `mapstructure:"send_interval_seconds"`
	MaxAttempts           int    `mapstructure:"max_attempts"`
	ExposeInResponse      bool   `mapstructure:"expose_in_response"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Email       EmailConfig `mapstructure:"email"`
	SMS         SMSConfig   `mapstructure:"sms"`
	MaxRetries  int         `mapstructure:"max_retries"`
	TimeoutSecs int         `mapstructure:"timeout_seconds"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseTLS   bool   `mapstructure:"use_tls"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// SMSConfig 短信网关配置
type SMSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	APIKey     string `mapstructure:"api_key"`
	Sender     string `mapstructure:"sender"`
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Provider string             `mapstructure:"provider"` // none / image
	Scenes   CaptchaSceneConfig `mapstructure:"scenes"`
	Image    CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	Register bool `mapstructure:"register"`
	LoginOTP bool `mapstructure:"login_otp"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// UploadConfig 文件上传配置
type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	MaxWidth          int      `mapstructure:"max_width"`
	MaxHeight         int      `mapstructure:"max_height"`
	DocumentMaxSize   int64    `mapstructure:"document_max_size"`
	DocumentTypes     []string `mapstructure:"document_types"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	BucketURL     string `mapstructure:"bucket_url"`      // file:///path | mem:// | s3://bucket?region=
	PublicBaseURL string `mapstructure:"public_base_url"` // 对外访问前缀
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit RateLimitConfig      `mapstructure:"login_rate_limit"`
	OTPRateLimit   RateLimitConfig      `mapstructure:"otp_rate_limit"`
	AIRateLimit    RateLimitConfig      `mapstructure:"ai_rate_limit"`
	ChatRateLimit  RateLimitConfig      `mapstructure:"chat_rate_limit"`
	QuizRateLimit  RateLimitConfig      `mapstructure:"quiz_rate_limit"`
	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// TicketConfig 工单配置
type TicketConfig struct {
	AdminEmail string `mapstructure:"admin_email"`
}

// QuizConfig 测验配置
type QuizConfig struct {
	PassPercentage int                  `mapstructure:"pass_percentage"`
	CooldownDays   int                  `mapstructure:"cooldown_days"`
	AnswerKeyFile  string               `mapstructure:"answer_key_file"`
	Questions      []QuizQuestionConfig `mapstructure:"questions"`
}

// QuizQuestionConfig 单个题目答案
type QuizQuestionConfig struct {
	ID      string `mapstructure:"id"`
	Type    string `mapstructure:"type"` // mcq / output
	Correct string `mapstructure:"correct"`
}

// AIConfig 生成式文本服务配置
type AIConfig struct {
	Provider       string `mapstructure:"provider"` // none / gemini / openai
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	SystemPrompt   string `mapstructure:"system_prompt"`
}

// NewsConfig 资讯聚合配置
type NewsConfig struct {
	Feeds           []string `mapstructure:"feeds"`
	CacheTTLSeconds int      `mapstructure:"cache_ttl_seconds"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"`
	MaxItems        int      `mapstructure:"max_items"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnw("dotenv_load_failed", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(viper.GetViper())

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

// SetDefaults 写入全部默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.stdout", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/swiftmeta.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("account_jwt.secret", "account-change-me-in-production")
	v.SetDefault("account_jwt.expire_hours", 720)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sm")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("upload.max_size", 5242880)
	v.SetDefault("upload.allowed_types", []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	})
	v.SetDefault("upload.allowed_extensions", []string{
		".jpg",
		".jpeg",
		".png",
		".gif",
		".webp",
	})
	v.SetDefault("upload.max_width", 4096)
	v.SetDefault("upload.max_height", 4096)
	v.SetDefault("upload.document_max_size", 10485760)
	v.SetDefault("upload.document_types", []string{
		"application/pdf",
		"image/jpeg",
		"image/png",
		"image/webp",
	})
	v.SetDefault("storage.bucket_url", "file:///tmp/swiftmeta-uploads")
	v.SetDefault("storage.public_base_url", "/uploads")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.login_rate_limit.block_seconds", 900)
	v.SetDefault("security.otp_rate_limit.window_seconds", 900)
	v.SetDefault("security.otp_rate_limit.max_attempts", 5)
	v.SetDefault("security.otp_rate_limit.block_seconds", 900)
	v.SetDefault("security.ai_rate_limit.window_seconds", 3600)
	v.SetDefault("security.ai_rate_limit.max_attempts", 5)
	v.SetDefault("security.ai_rate_limit.block_seconds", 0)
	v.SetDefault("security.chat_rate_limit.window_seconds", 3600)
	v.SetDefault("security.chat_rate_limit.max_attempts", 20)
	v.SetDefault("security.chat_rate_limit.block_seconds", 0)
	v.SetDefault("security.quiz_rate_limit.window_seconds", 900)
	v.SetDefault("security.quiz_rate_limit.max_attempts", 3)
	v.SetDefault("security.quiz_rate_limit.block_seconds", 0)
	v.SetDefault("security.password_policy.min_length", 8)
	v.SetDefault("security.password_policy.require_upper", true)
	v.SetDefault("security.password_policy.require_lower", true)
	v.SetDefault("security.password_policy.require_number", true)
	v.SetDefault("security.password_policy.require_special", false)
	v.SetDefault("otp.secret", "otp-change-me-in-production")
	v.SetDefault("otp.register_expire_minutes", 15)
	v.SetDefault("otp.login_expire_minutes", 10)
	v.SetDefault("otp.send_interval_seconds", 60)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.expose_in_response", false)
	v.SetDefault("notification.max_retries", 3)
	v.SetDefault("notification.timeout_seconds", 15)
	v.SetDefault("notification.email.enabled", false)
	v.SetDefault("notification.email.host", "")
	v.SetDefault("notification.email.port", 587)
	v.SetDefault("notification.email.username", "")
	v.SetDefault("notification.email.password", "")
	v.SetDefault("notification.email.from", "")
	v.SetDefault("notification.email.from_name", "SwiftMeta")
	v.SetDefault("notification.email.use_tls", true)
	v.SetDefault("notification.email.use_ssl", false)
	v.SetDefault("notification.sms.enabled", false)
	v.SetDefault("notification.sms.webhook_url", "")
	v.SetDefault("notification.sms.api_key", "")
	v.SetDefault("notification.sms.sender", "SwiftMeta")
	v.SetDefault("captcha.provider", "none")
	v.SetDefault("captcha.scenes.register", false)
	v.SetDefault("captcha.scenes.login_otp", false)
	v.SetDefault("captcha.image.length", 5)
	v.SetDefault("captcha.image.width", 240)
	v.SetDefault("captcha.image.height", 80)
	v.SetDefault("captcha.image.noise_count", 2)
	v.SetDefault("captcha.image.show_line", 2)
	v.SetDefault("captcha.image.expire_seconds", 300)
	v.SetDefault("captcha.image.max_store", 10240)
	v.SetDefault("ticket.admin_email", "")
	v.SetDefault("quiz.pass_percentage", 50)
	v.SetDefault("quiz.cooldown_days", 90)
	v.SetDefault("quiz.answer_key_file", "")
	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout_seconds", 20)
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("ai.system_prompt", "")
	v.SetDefault("news.feeds", []string{
		"https://feeds.arstechnica.com/arstechnica/technology-lab",
		"https://www.theverge.com/rss/index.xml",
	})
	v.SetDefault("news.cache_ttl_seconds", 900)
	v.SetDefault("news.timeout_seconds", 30)
	v.SetDefault("news.max_items", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
