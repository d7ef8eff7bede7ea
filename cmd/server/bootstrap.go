package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/api"
	"github.com/freshapi/freshapi/internal/app"
	iauth "github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/database"
	"github.com/freshapi/freshapi/pkg/logger"
)

const defaultShutdownTimeout = 15 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB     *gorm.DB
	JWT    *iauth.JWTService
	Router *gin.Engine
}

// bootstrapRuntime initialises the database and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(); shutdownErr != nil {
				log.Warn("cleanup after failed bootstrap", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.JWT, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases resources held by the stack.
func (s *runtimeStack) Shutdown() error {
	if s == nil || s.DB == nil {
		return nil
	}

	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("obtain sql db: %w", err)
	}
	return sqlDB.Close()
}

// validateConfig rejects configurations the server cannot run with. Every
// problem is reported at once.
func validateConfig(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs error
	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		errs = multierr.Append(errs, errors.New("auth.jwt.secret must be configured"))
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d is out of range", cfg.Server.Port))
	}
	if err := cfg.Authz.ValidateKnownChecks(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(ctx, db, cfg.Seed.SeedOptions()); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			err = multierr.Append(err, sqlDB.Close())
		}
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func shutdownTimeout(cfg *app.Config) time.Duration {
	if cfg != nil && cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return defaultShutdownTimeout
}
