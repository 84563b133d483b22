package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port         int    `mapstructure:"port"`
	CookieDomain string `mapstructure:"cookie_domain"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// AuthConfig contains JWT signing material and login throttling knobs.
type AuthConfig struct {
	PrivateKeyPath        string `mapstructure:"private_key_path"`
	PublicKeyPath         string `mapstructure:"public_key_path"`
	AccessTTLMinutes      int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours       int    `mapstructure:"refresh_ttl_hours"`
	LoginRateLimitPerHour int    `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int    `mapstructure:"login_lock_threshold"`
	LoginLockTTLMinutes   int    `mapstructure:"login_lock_ttl_minutes"`
}

// ClamdConfig 包含 clamd 病毒扫描服务地址，留空则跳过扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// SeedConfig toggles seeding of shared job boards and showcase companies at startup.
type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AccessTTL returns the access token lifetime as a duration.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime as a duration.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

// LoginLockTTL returns the lockout window as a duration.
func (a AuthConfig) LoginLockTTL() time.Duration {
	return time.Duration(a.LoginLockTTLMinutes) * time.Minute
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "jobtrack")
	v.SetDefault("database.user", "jobtrack")
	v.SetDefault("database.password", "jobtrack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "cover-letters")
	v.SetDefault("auth.access_ttl_minutes", 15)
	v.SetDefault("auth.refresh_ttl_hours", 168)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl_minutes", 15)
	v.SetDefault("seed.enabled", true)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.cookie_domain":              "API_COOKIE_DOMAIN",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.bucket":                   "MINIO_BUCKET",
		"auth.private_key_path":          "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":           "JWT_PUBLIC_KEY_PATH",
		"auth.access_ttl_minutes":        "JWT_ACCESS_TTL_MINUTES",
		"auth.refresh_ttl_hours":         "JWT_REFRESH_TTL_HOURS",
		"auth.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.login_lock_threshold":      "LOGIN_LOCK_THRESHOLD",
		"auth.login_lock_ttl_minutes":    "LOGIN_LOCK_TTL_MINUTES",
		"clamd.addr":                     "CLAMD_ADDR",
		"seed.enabled":                   "SEED_ENABLED",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PrivateKeyPath == "" {
		return errors.New("jwt private key path is required")
	}
	if cfg.Auth.PublicKeyPath == "" {
		return errors.New("jwt public key path is required")
	}
	if cfg.Auth.AccessTTLMinutes <= 0 {
		return errors.New("jwt access ttl must be positive")
	}
	if cfg.Auth.RefreshTTLHours <= 0 {
		return errors.New("jwt refresh ttl must be positive")
	}
	return nil
}
