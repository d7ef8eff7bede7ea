package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freshapi/freshapi/internal/models"
)

func TestAutoMigrateCreatesAuthorizationTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.User{},
		&models.Role{},
		&models.Resource{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserPermission{},
	}
	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}

	require.True(t, migrator.HasIndex(&models.UserPermission{}, "idx_user_permission"))
	require.True(t, migrator.HasIndex(&models.RolePermission{}, "idx_role_permission"))
	require.True(t, migrator.HasIndex(&models.Permission{}, "idx_permission_action_resource"))
}
