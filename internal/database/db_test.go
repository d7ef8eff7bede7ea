package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/models"
	"github.com/freshapi/freshapi/internal/permissions"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenPostgresRequiresCredentials(t *testing.T) {
	_, err := Open(Config{Driver: "postgres"})
	require.Error(t, err)

	_, err = Open(Config{Driver: "mysql"})
	require.Error(t, err)
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, AutoMigrateAndSeed(ctx, db, SeedOptions{AdminEmail: "Root@Example.com"}))
	// Seeding twice must not duplicate anything.
	require.NoError(t, AutoMigrateAndSeed(ctx, db, SeedOptions{AdminEmail: "root@example.com"}))

	var roles []models.Role
	require.NoError(t, db.Order("level DESC").Find(&roles).Error)
	require.Len(t, roles, 3)
	require.Equal(t, RoleSuperAdmin, roles[0].Name)
	require.Equal(t, LevelSuperAdmin, roles[0].Level)
	require.Equal(t, RoleAdmin, roles[1].Name)
	require.Equal(t, RoleUser, roles[2].Name)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	require.Equal(t, "root@example.com", users[0].Email)
	require.NotNil(t, users[0].RoleID)
	require.Equal(t, roles[0].ID, *users[0].RoleID)

	resolver, err := permissions.NewResolver(db)
	require.NoError(t, err)

	root, err := resolver.Resolve(ctx, users[0].ID, permissions.ResourceFreshAPI)
	require.NoError(t, err)
	require.True(t, root.Has(permissions.ActionSystemAdmin))
	require.True(t, root.Has(permissions.ActionUserManagement))

	var superGrants int64
	require.NoError(t, db.Model(&models.RolePermission{}).Where("role_id = ?", roles[0].ID).Count(&superGrants).Error)
	var permCount int64
	require.NoError(t, db.Model(&models.Permission{}).
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("resources.name IN ?", []string{permissions.ResourceFreshAPI, permissions.ResourceTaskSystem}).
		Count(&permCount).Error)
	require.Equal(t, permCount, superGrants)
}

func TestSeededRoleGrants(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, AutoMigrateAndSeed(ctx, db, SeedOptions{}))

	resolver, err := permissions.NewResolver(db)
	require.NoError(t, err)

	cases := map[string][]string{
		RoleAdmin: {
			permissions.ActionAdmin,
			permissions.ActionInviteUsers,
			permissions.ActionRead,
			permissions.ActionUserManagement,
			permissions.ActionWrite,
		},
		RoleUser: {permissions.ActionRead, permissions.ActionWrite},
	}
	for roleName, want := range cases {
		var role models.Role
		require.NoError(t, db.Where("name = ?", roleName).First(&role).Error)
		user := models.User{Email: roleName + "@example.com", Name: roleName, IsActive: true, RoleID: &role.ID}
		require.NoError(t, db.Create(&user).Error)

		set, err := resolver.Resolve(ctx, user.ID, permissions.ResourceFreshAPI)
		require.NoError(t, err)
		require.Equal(t, want, set.Sorted(), roleName)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
