package app

import (
	"fmt"
	"strings"

	"github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/database"
	"github.com/freshapi/freshapi/internal/permissions"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// LoaderOptions converts AuthzConfig into request loader settings.
func (c AuthzConfig) LoaderOptions() permissions.LoaderOptions {
	wait := c.BatchWait
	if wait <= 0 {
		wait = permissions.DefaultBatchWait
	}
	maxBatch := c.MaxBatch
	if maxBatch <= 0 {
		maxBatch = permissions.DefaultMaxBatch
	}
	resource := strings.TrimSpace(c.DefaultResource)
	if resource == "" {
		resource = permissions.ResourceFreshAPI
	}

	return permissions.LoaderOptions{
		DefaultResource: resource,
		Wait:            wait,
		MaxBatch:        maxBatch,
	}
}

// ValidateKnownChecks ensures every configured "resource:action" pair and
// the default resource exist in the registered vocabulary.
func (c AuthzConfig) ValidateKnownChecks() error {
	resource := c.LoaderOptions().DefaultResource
	if _, ok := permissions.Get(resource); !ok {
		return fmt.Errorf("authz: default resource %q: %w", resource, permissions.ErrUnknownResource)
	}

	for _, check := range c.KnownChecks {
		check = strings.TrimSpace(check)
		if check == "" {
			continue
		}
		res, action, ok := strings.Cut(check, ":")
		if !ok {
			return fmt.Errorf("authz: check %q must be resource:action", check)
		}
		if err := permissions.MustBeKnown(res, action); err != nil {
			return fmt.Errorf("authz: check %q: %w", check, err)
		}
	}
	return nil
}

// DatabaseOptions converts DatabaseConfig into the database package configuration.
func (c DatabaseConfig) DatabaseOptions() database.Config {
	cfg := database.Config{
		Driver:  c.Driver,
		Path:    c.Path,
		DSN:     c.DSN,
		Options: c.Options,
	}

	var creds DBAuthConfig
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql":
		creds = c.Postgres
	case "mysql":
		creds = c.MySQL
	default:
		return cfg
	}

	cfg.Host = creds.Host
	cfg.Port = creds.Port
	cfg.Name = creds.Database
	cfg.User = creds.Username
	cfg.Password = creds.Password
	return cfg
}

// SeedOptions converts SeedConfig into database seed options.
func (c SeedConfig) SeedOptions() database.SeedOptions {
	return database.SeedOptions{
		AdminEmail: c.AdminEmail,
		AdminName:  c.AdminName,
	}
}
