package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the FreshAPI backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Authz      AuthzConfig      `mapstructure:"authz"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogEncoding     string        `mapstructure:"log_encoding"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Postgres DBAuthConfig      `mapstructure:"postgres"`
	MySQL    DBAuthConfig      `mapstructure:"mysql"`
	Options  map[string]string `mapstructure:"options"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// AuthzConfig tunes permission resolution.
type AuthzConfig struct {
	DefaultResource string        `mapstructure:"default_resource"`
	BatchWait       time.Duration `mapstructure:"batch_wait"`
	MaxBatch        int           `mapstructure:"max_batch"`
	// KnownChecks lists "resource:action" pairs route guards rely on; each
	// must exist in the vocabulary at boot.
	KnownChecks []string `mapstructure:"known_checks"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// SeedConfig controls bootstrap records.
type SeedConfig struct {
	AdminEmail string `mapstructure:"admin_email"`
	AdminName  string `mapstructure:"admin_name"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("FRESHAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_encoding", "json")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/freshapi.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "freshapi")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("authz.default_resource", "freshapi")
	v.SetDefault("authz.batch_wait", "2ms")
	v.SetDefault("authz.max_batch", 100)
	v.SetDefault("authz.known_checks", []string{})

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("seed.admin_email", "")
	v.SetDefault("seed.admin_name", "Administrator")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
