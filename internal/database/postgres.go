package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var postgresDefaults = map[string]string{
	"sslmode":          "disable",
	"application_name": applicationName,
	"TimeZone":         "UTC",
}

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

// buildPostgresDSN renders a key/value DSN. An explicit DSN wins over the
// individual fields.
func buildPostgresDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres: user and database name are required")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	params := []string{
		"host=" + host,
		fmt.Sprintf("port=%d", port),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		params = append(params, "password="+cfg.Password)
	}
	params = append(params, mergeOptions(postgresDefaults, cfg.Options)...)

	return strings.Join(params, " "), nil
}
