package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8000\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Cache.OrdersTTL)
	assert.Equal(t, "sessionid", cfg.Session.CookieName)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, "filesystem", cfg.Media.Backend)
	assert.Equal(t, "log", cfg.Events.Backend)
	assert.Equal(t, 10, cfg.Pagination.OrdersPerPage)
	assert.Equal(t, 8, cfg.Auth.MinPasswordLength)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
database:
  driver: postgres
  host: db.internal
  user: shop
  database: shop
cache:
  orders_ttl: 30s
pagination:
  orders_per_page: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db.internal port=5432 user=shop password= dbname=shop sslmode=prefer", cfg.Database.DSN())
	assert.False(t, cfg.Database.IsEmbedded())
	assert.Equal(t, 30*time.Second, cfg.Cache.OrdersTTL)
	assert.Equal(t, 5, cfg.Pagination.OrdersPerPage)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOMESTORE_SERVER_PORT", "9200")
	t.Setenv("HOMESTORE_MEDIA_BACKEND", "s3")
	t.Setenv("HOMESTORE_MEDIA_S3_BUCKET", "avatars")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9100\n"))
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Media.Backend)
	assert.Equal(t, "avatars", cfg.Media.S3.Bucket)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Server:     ServerConfig{Port: 8000},
		Database:   DatabaseConfig{Driver: "sqlite", Path: "x.db"},
		Cache:      CacheConfig{Backend: "memory", OrdersTTL: time.Minute},
		Session:    SessionConfig{CookieName: "sessionid", Lifetime: time.Hour},
		Media:      MediaConfig{Backend: "filesystem", Dir: "media"},
		Events:     EventsConfig{Backend: "log"},
		Auth:       AuthConfig{BcryptCost: 10, MinPasswordLength: 8},
		Pagination: PaginationConfig{OrdersPerPage: 10},
		Logging:    LoggingConfig{Level: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "postgres without host", mutate: func(c *Config) {
			c.Database = DatabaseConfig{Driver: "postgres", User: "u", Database: "d"}
		}, wantErr: true},
		{name: "redis cache without redis", mutate: func(c *Config) { c.Cache.Backend = "redis" }, wantErr: true},
		{name: "redis cache with redis", mutate: func(c *Config) {
			c.Cache.Backend = "redis"
			c.Redis.Enabled = true
		}},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Media.Backend = "s3" }, wantErr: true},
		{name: "sns without topic", mutate: func(c *Config) { c.Events.Backend = "sns" }, wantErr: true},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.Auth.BcryptCost = 2 }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.Pagination.OrdersPerPage = 0 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "upper-case log level", mutate: func(c *Config) { c.Logging.Level = "DEBUG" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
