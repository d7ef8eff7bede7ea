package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freshapi/freshapi/internal/models"
	"github.com/freshapi/freshapi/internal/permissions"
)

// Built-in role names and levels.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleUser       = "user"

	LevelSuperAdmin = 100
	LevelAdmin      = 50
	LevelUser       = 10
)

// SeedOptions controls optional seed records.
type SeedOptions struct {
	// AdminEmail, when set, ensures a super_admin user with this email exists.
	AdminEmail string
	AdminName  string
}

type seedRole struct {
	name        string
	description string
	level       int
	grants      map[string][]string // resource -> actions; nil actions means every registered action
}

var defaultRoles = []seedRole{
	{
		name:        RoleSuperAdmin,
		description: "Full access to every resource",
		level:       LevelSuperAdmin,
		grants: map[string][]string{
			permissions.ResourceFreshAPI:   nil,
			permissions.ResourceTaskSystem: nil,
		},
	},
	{
		name:        RoleAdmin,
		description: "Administers users and projects",
		level:       LevelAdmin,
		grants: map[string][]string{
			permissions.ResourceFreshAPI: {
				permissions.ActionRead,
				permissions.ActionWrite,
				permissions.ActionAdmin,
				permissions.ActionUserManagement,
				permissions.ActionInviteUsers,
			},
			permissions.ResourceTaskSystem: {
				permissions.ActionRead,
				permissions.ActionWrite,
				permissions.ActionAdmin,
				permissions.ActionAssign,
			},
		},
	},
	{
		name:        RoleUser,
		description: "Standard user access",
		level:       LevelUser,
		grants: map[string][]string{
			permissions.ResourceFreshAPI:   {permissions.ActionRead, permissions.ActionWrite},
			permissions.ResourceTaskSystem: {permissions.ActionRead, permissions.ActionWrite},
		},
	},
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Resource{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserPermission{},
	)
}

// SeedData syncs the permission vocabulary, ensures the built-in roles and
// their grants exist and optionally creates the bootstrap admin. It is safe
// to run on every start.
func SeedData(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := permissions.Sync(ctx, db); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roleIDs := make(map[string]string, len(defaultRoles))
		for _, def := range defaultRoles {
			role, err := ensureRole(tx, def)
			if err != nil {
				return err
			}
			roleIDs[def.name] = role.ID

			for resource, actions := range def.grants {
				if err := grantRoleActions(tx, role.ID, resource, actions); err != nil {
					return fmt.Errorf("seed %s grants on %s: %w", def.name, resource, err)
				}
			}
		}

		email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
		if email == "" {
			return nil
		}
		return ensureAdminUser(tx, email, opts.AdminName, roleIDs[RoleSuperAdmin])
	})
}

func ensureRole(tx *gorm.DB, def seedRole) (*models.Role, error) {
	role := models.Role{Name: def.name, Description: def.description, Level: def.level, IsActive: true}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&role).Error; err != nil {
		return nil, fmt.Errorf("seed role %s: %w", def.name, err)
	}

	var stored models.Role
	if err := tx.Where("name = ?", def.name).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload role %s: %w", def.name, err)
	}
	return &stored, nil
}

func grantRoleActions(tx *gorm.DB, roleID, resource string, actions []string) error {
	query := tx.Model(&models.Permission{}).
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("resources.name = ?", resource)
	if actions != nil {
		query = query.Where("permissions.action IN ?", actions)
	}

	var permissionIDs []string
	if err := query.Pluck("permissions.id", &permissionIDs).Error; err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}

	rows := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: id})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

func ensureAdminUser(tx *gorm.DB, email, name, roleID string) error {
	if name = strings.TrimSpace(name); name == "" {
		name = "Administrator"
	}

	var existing models.User
	err := tx.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("lookup admin user: %w", err)
	}

	admin := models.User{Email: email, Name: name, IsActive: true, RoleID: &roleID}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}
