package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// applicationName tags server-side sessions so operators can spot the
// authorization service in pg_stat_activity and similar views.
const applicationName = "freshapi"

// Config contains database connection options.
type Config struct {
	Driver   string
	Path     string // SQLite database path when Driver == sqlite
	DSN      string // Optional DSN override
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string
}

// Open initialises a gorm.DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg)
	case "postgres", "postgresql":
		return openPostgres(cfg)
	case "mysql":
		return openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// gormConfig is shared by every driver. SQL logging stays silent; the zap
// access log already records each request. Timestamps are stored in UTC.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// mergeOptions overlays configured driver options on the defaults and
// renders them as sorted key=value pairs.
func mergeOptions(defaults, overrides map[string]string) []string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+merged[key])
	}
	return pairs
}

// AutoMigrateAndSeed convenience helper used during application start-up.
func AutoMigrateAndSeed(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := SeedData(ctx, db, opts); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}

	return nil
}

// Ping verifies the underlying connection is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
