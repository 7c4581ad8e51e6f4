// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 启动时加载一次，之后只读。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Mail          MailConfig          `mapstructure:"mail"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Recaptcha     RecaptchaConfig     `mapstructure:"recaptcha"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	CORS          CORSConfig          `mapstructure:"cors"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string       `mapstructure:"driver"` // sqlite | mysql
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// SQLiteConfig 存储 SQLite 数据库文件路径。
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用 Redis。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig 存储管理员登录相关的配置。
type AdminConfig struct {
	Password         string `mapstructure:"password"`
	PasswordHash     string `mapstructure:"password_hash"` // bcrypt，设置后优先于明文密码
	Token            string `mapstructure:"token"`
	AuthMode         string `mapstructure:"auth_mode"` // token | jwt
	JWTSecret        string `mapstructure:"jwt_secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
	CookieSecure     bool   `mapstructure:"cookie_secure"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时通知走进程内队列。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MailConfig 存储 SMTP 发信配置。
type MailConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from"`
	AdminRecipient string `mapstructure:"admin_recipient"`
}

// NotifyConfig 控制邮件通知的投递方式。
type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Workers    int    `mapstructure:"workers"`
	QueueSize  int    `mapstructure:"queue_size"`
	DigestCron string `mapstructure:"digest_cron"`
}

// RecaptchaConfig 存储 reCAPTCHA 校验配置。
type RecaptchaConfig struct {
	SiteKey   string `mapstructure:"site_key"`
	SecretKey string `mapstructure:"secret_key"`
	VerifyURL string `mapstructure:"verify_url"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// CORSConfig 存储跨域配置。
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "blog.db")
	v.SetDefault("admin.auth_mode", "token")
	v.SetDefault("admin.token_expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "site-notifications")
	v.SetDefault("kafka.group_id", "personal-site-notifier")
	v.SetDefault("mail.port", 587)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.queue_size", 100)
	v.SetDefault("recaptcha.verify_url", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("elasticsearch.index_name", "posts")
}

// Load 从指定路径读取 YAML 配置，并允许环境变量覆盖（例如 ADMIN_PASSWORD 覆盖 admin.password）。
// 配置文件不存在时只使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	// AutomaticEnv 只对 viper 已知的键生效，这里显式绑定没有默认值的敏感键。
	for _, key := range []string{
		"admin.password", "admin.password_hash", "admin.token", "admin.jwt_secret",
		"database.mysql.dsn", "database.redis.addr", "database.redis.password",
		"kafka.brokers", "mail.host", "mail.username", "mail.password", "mail.from",
		"mail.admin_recipient", "recaptcha.site_key", "recaptcha.secret_key",
		"minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.bucket_name",
		"elasticsearch.addresses", "elasticsearch.username", "elasticsearch.password",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "mysql" && c.Database.MySQL.DSN == "" {
		return errors.New("config: database.mysql.dsn is required for mysql driver")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.New("config: admin.password or admin.password_hash is required")
	}
	switch c.Admin.AuthMode {
	case "token":
		if c.Admin.Token == "" {
			return errors.New("config: admin.token is required for token auth mode")
		}
	case "jwt":
		if c.Admin.JWTSecret == "" {
			return errors.New("config: admin.jwt_secret is required for jwt auth mode")
		}
	default:
		return fmt.Errorf("config: unknown admin auth mode %q", c.Admin.AuthMode)
	}
	return nil
}
