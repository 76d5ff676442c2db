package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/notify"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/database"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/redis"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  database.Config `mapstructure:"database"`
	Redis     redis.Config    `mapstructure:"redis"`
	MinIO     minio.Config    `mapstructure:"minio"`
	Log       logger.Config   `mapstructure:"log"`
	Access    AccessConfig    `mapstructure:"access"`
	Download  DownloadConfig  `mapstructure:"download"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Mail      notify.Config   `mapstructure:"mail"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AccessConfig controls how callers are identified and who is an administrator
type AccessConfig struct {
	// Verifier is "header" (trust proxy headers) or "jwt" (verify the signed assertion)
	Verifier    string               `mapstructure:"verifier"`
	Headers     identity.HeaderNames `mapstructure:"headers"`
	JWT         identity.JWTConfig   `mapstructure:"jwt"`
	AdminEmails []string             `mapstructure:"admin_emails"`
	AdminGroups []string             `mapstructure:"admin_groups"`
}

type DownloadConfig struct {
	CodeLength       int           `mapstructure:"code_length"`
	CollisionRetries int           `mapstructure:"collision_retries"`
	PresignTTL       time.Duration `mapstructure:"presign_ttl"`
	MaxUploadBytes   int64         `mapstructure:"max_upload_bytes"`
}

type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ValidateLimit  int           `mapstructure:"validate_limit"`
	ValidateWindow time.Duration `mapstructure:"validate_window"`
}

// LoadConfig reads path (YAML) and overlays PORTAL_* environment variables,
// e.g. PORTAL_DATABASE_PASSWORD overrides database.password
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("portal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	db := database.DefaultConfig()
	v.SetDefault("database.host", db.Host)
	v.SetDefault("database.port", db.Port)
	v.SetDefault("database.user", db.User)
	v.SetDefault("database.password", db.Password)
	v.SetDefault("database.dbname", db.DBName)
	v.SetDefault("database.sslmode", db.SSLMode)
	v.SetDefault("database.timezone", db.Timezone)
	v.SetDefault("database.maxidleconns", db.MaxIdleConns)
	v.SetDefault("database.maxopenconns", db.MaxOpenConns)
	v.SetDefault("database.connmaxlifetime", db.ConnMaxLifetime)
	v.SetDefault("database.connmaxidletime", db.ConnMaxIdleTime)
	v.SetDefault("database.loglevel", db.LogLevel)
	v.SetDefault("database.slowthreshold", db.SlowThreshold)
	v.SetDefault("database.preparestmt", db.PrepareStmt)
	v.SetDefault("database.automigrate", db.AutoMigrate)
	v.SetDefault("database.retry.maxattempts", db.Retry.MaxAttempts)
	v.SetDefault("database.retry.basedelay", db.Retry.BaseDelay)
	v.SetDefault("database.retry.maxdelay", db.Retry.MaxDelay)
	v.SetDefault("database.retry.jitter", db.Retry.Jitter)

	rd := redis.DefaultConfig()
	v.SetDefault("redis.addr", rd.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", rd.PoolSize)
	v.SetDefault("redis.min_idle_conns", rd.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rd.DialTimeout)
	v.SetDefault("redis.read_timeout", rd.ReadTimeout)
	v.SetDefault("redis.write_timeout", rd.WriteTimeout)
	v.SetDefault("redis.max_retries", rd.MaxRetries)
	v.SetDefault("redis.key_prefix", rd.KeyPrefix)

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.accesskeyid", "")
	v.SetDefault("minio.secretaccesskey", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.usessl", false)
	v.SetDefault("minio.bucketlookup", string(minio.BucketLookupAuto))
	v.SetDefault("minio.bucket", "portal-files")
	v.SetDefault("minio.createbucket", false)
	v.SetDefault("minio.requesttimeout", 30*time.Second)

	lg := logger.DefaultConfig()
	v.SetDefault("log.level", lg.Level)
	v.SetDefault("log.format", lg.Format)
	v.SetDefault("log.output", lg.Output)
	v.SetDefault("log.enablestacktrace", lg.EnableStacktrace)
	v.SetDefault("log.file.filename", lg.File.Filename)
	v.SetDefault("log.file.maxsize", lg.File.MaxSize)
	v.SetDefault("log.file.maxage", lg.File.MaxAge)
	v.SetDefault("log.file.maxbackups", lg.File.MaxBackups)
	v.SetDefault("log.file.compress", lg.File.Compress)

	h := identity.DefaultHeaderNames()
	v.SetDefault("access.verifier", "header")
	v.SetDefault("access.headers.email", h.Email)
	v.SetDefault("access.headers.fallback_email", h.FallbackEmail)
	v.SetDefault("access.headers.name", h.Name)
	v.SetDefault("access.headers.groups", h.Groups)
	v.SetDefault("access.headers.user_id", h.UserID)
	v.SetDefault("access.headers.assertion", h.Assertion)
	v.SetDefault("access.jwt.secret", "")
	v.SetDefault("access.jwt.audience", "")
	v.SetDefault("access.jwt.issuer", "")
	v.SetDefault("access.jwt.leeway", 30*time.Second)
	v.SetDefault("access.admin_emails", []string{})
	v.SetDefault("access.admin_groups", []string{})

	v.SetDefault("download.code_length", 8)
	v.SetDefault("download.collision_retries", 5)
	v.SetDefault("download.presign_ttl", time.Hour)
	v.SetDefault("download.max_upload_bytes", int64(500<<20))

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.validate_limit", 20)
	v.SetDefault("ratelimit.validate_window", time.Minute)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.from_name", "File Portal")
	v.SetDefault("mail.tls_policy", "mandatory")
	v.SetDefault("mail.timeout", 15*time.Second)
	v.SetDefault("mail.max_retries", 3)
	v.SetDefault("mail.retry_interval", 2*time.Second)
	v.SetDefault("mail.portal_url", "")
	v.SetDefault("mail.workers", 4)
	v.SetDefault("mail.queue_size", 1000)
}

// Validate checks cross-field constraints not covered by the component configs
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}

	switch c.Access.Verifier {
	case "header":
	case "jwt":
		if c.Access.JWT.Secret == "" {
			return errors.New("access.jwt.secret is required when access.verifier is jwt")
		}
	default:
		return fmt.Errorf("access.verifier must be header or jwt, got %q", c.Access.Verifier)
	}
	if len(c.Access.AdminEmails) == 0 && len(c.Access.AdminGroups) == 0 {
		return errors.New("access.admin_emails or access.admin_groups must be set")
	}
	if c.Access.Verifier == "header" && len(c.Access.AdminGroups) > 0 && c.Access.Headers.Groups == "" {
		return errors.New("access.admin_groups with the header verifier requires access.headers.groups")
	}

	if c.Download.CodeLength < 6 || c.Download.CodeLength > 32 {
		return errors.New("download.code_length must be between 6 and 32")
	}
	if c.Download.CollisionRetries < 1 {
		return errors.New("download.collision_retries must be >= 1")
	}
	if c.Download.PresignTTL <= 0 || c.Download.PresignTTL > 7*24*time.Hour {
		return errors.New("download.presign_ttl must be between 1s and 7 days")
	}

	if c.RateLimit.Enabled && (c.RateLimit.ValidateLimit <= 0 || c.RateLimit.ValidateWindow <= 0) {
		return errors.New("ratelimit.validate_limit and ratelimit.validate_window must be positive")
	}

	if c.Mail.Enabled {
		if err := c.Mail.Validate(); err != nil {
			return err
		}
	}
	return nil
}
