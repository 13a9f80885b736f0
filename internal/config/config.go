// Package config provides configuration management for the HOME store server.
// Configuration can be loaded from YAML files, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Session    SessionConfig    `mapstructure:"session"`
	Media      MediaConfig      `mapstructure:"media"`
	Events     EventsConfig     `mapstructure:"events"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection settings.
// Supports both PostgreSQL and SQLite backends.
type DatabaseConfig struct {
	// Driver specifies the database driver: "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`

	// PostgreSQL settings (used when Driver is "postgres")
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// SQLite settings (used when Driver is "sqlite")
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`

	// OrdersTTL is how long a user's order history stays cached.
	OrdersTTL time.Duration `mapstructure:"orders_ttl"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	CookieName    string        `mapstructure:"cookie_name"`
	Lifetime      time.Duration `mapstructure:"lifetime"`
	SecureCookie  bool          `mapstructure:"secure_cookie"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

// MediaConfig holds avatar storage settings.
type MediaConfig struct {
	// Backend is "filesystem" or "s3".
	Backend       string        `mapstructure:"backend"`
	Dir           string        `mapstructure:"dir"`
	URLPrefix     string        `mapstructure:"url_prefix"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
	S3            S3MediaConfig `mapstructure:"s3"`
}

// S3MediaConfig holds settings for an S3-compatible media bucket.
type S3MediaConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicURL       string `mapstructure:"public_url"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// EventsConfig holds account event publishing settings.
type EventsConfig struct {
	// Backend is "log" or "sns".
	Backend     string `mapstructure:"backend"`
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
	Region      string `mapstructure:"region"`
	Endpoint    string `mapstructure:"endpoint"`
}

// AuthConfig holds password policy settings.
type AuthConfig struct {
	// BcryptCost is the bcrypt work factor for new password hashes.
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength int `mapstructure:"min_password_length"`
}

// PaginationConfig holds page sizes for listings.
type PaginationConfig struct {
	OrdersPerPage int `mapstructure:"orders_per_page"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the port for the metrics HTTP server.
	Port int `mapstructure:"port"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds login throttling settings.
type RateLimitConfig struct {
	// Enabled determines if rate limiting is active.
	Enabled bool `mapstructure:"enabled"`

	// RequestsPerSecond is the rate of token refill per client.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// BurstSize is the maximum number of tokens (burst capacity).
	BurstSize int `mapstructure:"burst_size"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with HOMESTORE_ and use _ as separator.
// A .env file in the working directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("HOMESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/homestore")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "homestore")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "homestore")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	// SQLite defaults
	v.SetDefault("database.path", "./data/homestore.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.synchronous_mode", "NORMAL")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.orders_ttl", 2*time.Minute)

	// Session defaults
	v.SetDefault("session.cookie_name", "sessionid")
	v.SetDefault("session.lifetime", 14*24*time.Hour)
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("session.purge_interval", time.Hour)

	// Media defaults
	v.SetDefault("media.backend", "filesystem")
	v.SetDefault("media.dir", "./data/media")
	v.SetDefault("media.url_prefix", "/media/")
	v.SetDefault("media.max_upload_size", 5*1024*1024) // 5MB
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.region", "us-east-1")
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.access_key_id", "")
	v.SetDefault("media.s3.secret_access_key", "")
	v.SetDefault("media.s3.public_url", "")
	v.SetDefault("media.s3.use_path_style", true)

	// Events defaults
	v.SetDefault("events.backend", "log")
	v.SetDefault("events.sns_topic_arn", "")
	v.SetDefault("events.region", "us-east-1")
	v.SetDefault("events.endpoint", "")

	// Auth defaults
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.min_password_length", 8)

	// Pagination defaults
	v.SetDefault("pagination.orders_per_page", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 1)
	v.SetDefault("rate_limit.burst_size", 10)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for postgres driver")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required for postgres driver")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres driver")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite'")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("cache.backend 'redis' requires redis.enabled")
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis'")
	}
	if c.Cache.OrdersTTL < 0 {
		return fmt.Errorf("cache.orders_ttl must not be negative")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive")
	}

	switch c.Media.Backend {
	case "filesystem":
		if c.Media.Dir == "" {
			return fmt.Errorf("media.dir is required for filesystem backend")
		}
	case "s3":
		if c.Media.S3.Bucket == "" {
			return fmt.Errorf("media.s3.bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("media.backend must be 'filesystem' or 's3'")
	}

	switch c.Events.Backend {
	case "log":
	case "sns":
		if c.Events.SNSTopicARN == "" {
			return fmt.Errorf("events.sns_topic_arn is required for sns backend")
		}
	default:
		return fmt.Errorf("events.backend must be 'log' or 'sns'")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be positive")
	}

	if c.Pagination.OrdersPerPage < 1 {
		return fmt.Errorf("pagination.orders_per_page must be positive")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}
