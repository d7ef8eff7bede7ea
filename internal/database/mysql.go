package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// parseTime is required for gorm timestamps; loc matches the UTC NowFunc.
var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"parseTime": "True",
	"loc":       "UTC",
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

func buildMySQLDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql: user and database name are required")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials += ":" + cfg.Password
	}

	query := strings.Join(mergeOptions(mysqlDefaults, cfg.Options), "&")
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", credentials, host, port, cfg.Name, query), nil
}
