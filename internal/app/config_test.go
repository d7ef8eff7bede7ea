package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freshapi/freshapi/internal/permissions"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/freshapi.sqlite", cfg.Database.Path)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "freshapi", cfg.Authz.DefaultResource)
	require.Equal(t, 2*time.Millisecond, cfg.Authz.BatchWait)
	require.Equal(t, 100, cfg.Authz.MaxBatch)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, "Administrator", cfg.Seed.AdminName)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig("./testdata")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 6543, cfg.Database.Postgres.Port)
	require.Equal(t, "require", cfg.Database.Options["sslmode"])
	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 5*time.Millisecond, cfg.Authz.BatchWait)
	require.Equal(t, 50, cfg.Authz.MaxBatch)
	require.Equal(t, []string{"freshapi:user_management", "task_system:assign"}, cfg.Authz.KnownChecks)
	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "admin@example.com", cfg.Seed.AdminEmail)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("FRESHAPI_SERVER_PORT", "7070")
	t.Setenv("FRESHAPI_AUTH_JWT_SECRET", "from-env")
	t.Setenv("FRESHAPI_AUTHZ_MAX_BATCH", "7")

	cfg, err := LoadConfig("./testdata")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, 7, cfg.Authz.MaxBatch)
}

func TestAuthConfigJWTServiceConfig(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "freshapi"}}
	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, "s", jwtCfg.Secret)
	require.Equal(t, "freshapi", jwtCfg.Issuer)
	require.Equal(t, 15*time.Minute, jwtCfg.AccessTokenTTL)
}

func TestAuthzConfigLoaderOptions(t *testing.T) {
	opts := AuthzConfig{}.LoaderOptions()
	require.Equal(t, permissions.ResourceFreshAPI, opts.DefaultResource)
	require.Equal(t, permissions.DefaultBatchWait, opts.Wait)
	require.Equal(t, permissions.DefaultMaxBatch, opts.MaxBatch)

	opts = AuthzConfig{DefaultResource: " task_system ", BatchWait: time.Second, MaxBatch: 3}.LoaderOptions()
	require.Equal(t, permissions.ResourceTaskSystem, opts.DefaultResource)
	require.Equal(t, time.Second, opts.Wait)
	require.Equal(t, 3, opts.MaxBatch)
}

func TestAuthzConfigValidateKnownChecks(t *testing.T) {
	require.NoError(t, AuthzConfig{KnownChecks: []string{"freshapi:read", " task_system:assign ", ""}}.ValidateKnownChecks())

	err := AuthzConfig{DefaultResource: "billing"}.ValidateKnownChecks()
	require.ErrorIs(t, err, permissions.ErrUnknownResource)

	err = AuthzConfig{KnownChecks: []string{"freshapi:launch"}}.ValidateKnownChecks()
	require.ErrorIs(t, err, permissions.ErrUnknownAction)

	err = AuthzConfig{KnownChecks: []string{"nocolon"}}.ValidateKnownChecks()
	require.Error(t, err)
}

func TestDatabaseConfigDatabaseOptions(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "mysql",
		MySQL:  DBAuthConfig{Host: "mysql", Port: 3306, Database: "freshapi", Username: "root", Password: "pw"},
	}
	opts := cfg.DatabaseOptions()
	require.Equal(t, "mysql", opts.Driver)
	require.Equal(t, "mysql", opts.Host)
	require.Equal(t, "freshapi", opts.Name)
	require.Equal(t, "root", opts.User)

	opts = DatabaseConfig{Driver: "sqlite", Path: "x.db"}.DatabaseOptions()
	require.Equal(t, "x.db", opts.Path)
	require.Empty(t, opts.Host)
}
