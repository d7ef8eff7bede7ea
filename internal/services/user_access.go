package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/models"
	"github.com/freshapi/freshapi/internal/permissions"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
)

// GrantUserPermission adds a grant override for the user. Granting twice
// leaves a single grant row.
func (s *AccessService) GrantUserPermission(ctx context.Context, userID, permissionID string) error {
	return s.upsertOverride(ctx, userID, permissionID, true)
}

// DenyUserPermission adds a deny override, which wins over any role grant.
func (s *AccessService) DenyUserPermission(ctx context.Context, userID, permissionID string) error {
	return s.upsertOverride(ctx, userID, permissionID, false)
}

// RevokeUserPermission turns an existing grant override into a deny. It
// reports Conflict when the user holds no grant row for the permission, so a
// second revoke is surfaced rather than silently ignored.
func (s *AccessService) RevokeUserPermission(ctx context.Context, userID, permissionID string) error {
	ctx = ensureContext(ctx)
	identity, user, perm, err := s.loadOverrideTarget(ctx, userID, permissionID)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&models.UserPermission{}).
		Where("user_id = ? AND permission_id = ? AND is_granted = ?", user.ID, perm.ID, true).
		Update("is_granted", false)
	if res.Error != nil {
		return fmt.Errorf("access service: revoke user permission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("permission is not granted to user")
	}

	clearRequestCache(ctx)
	s.log.Info("user permission revoked",
		zap.String("actor_id", identity.UserID),
		zap.String("user_id", user.ID),
		zap.String("permission_id", perm.ID),
	)
	return nil
}

// ClearUserPermission removes any override so the user's role decides again.
func (s *AccessService) ClearUserPermission(ctx context.Context, userID, permissionID string) error {
	ctx = ensureContext(ctx)
	identity, user, perm, err := s.loadOverrideTarget(ctx, userID, permissionID)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", user.ID, perm.ID).
		Delete(&models.UserPermission{})
	if res.Error != nil {
		return fmt.Errorf("access service: clear user permission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("User permission")
	}

	clearRequestCache(ctx)
	s.log.Info("user permission cleared",
		zap.String("actor_id", identity.UserID),
		zap.String("user_id", user.ID),
		zap.String("permission_id", perm.ID),
	)
	return nil
}

// AssignUserRole moves the target to roleID. The caller needs user
// management, must outrank the target and must outrank the role itself, so
// nobody can hand out authority they do not hold.
func (s *AccessService) AssignUserRole(ctx context.Context, userID, roleID string) (*models.User, error) {
	ctx = ensureContext(ctx)
	identity, err := s.requireManage(ctx, userID)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := loadOne(ctx, s.db, &user, userID, "User"); err != nil {
		return nil, err
	}
	var role models.Role
	if err := loadOne(ctx, s.db, &role, roleID, "Role"); err != nil {
		return nil, err
	}
	if !role.IsActive {
		return nil, apperrors.NewBadRequest("role is inactive")
	}

	if err := s.requireOutranks(ctx, identity, role.Level, permissions.ActionAssign); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("role_id", role.ID).Error; err != nil {
		return nil, fmt.Errorf("access service: assign user role: %w", err)
	}
	user.Role = &role

	clearRequestCache(ctx)
	s.log.Info("user role assigned",
		zap.String("actor_id", identity.UserID),
		zap.String("user_id", user.ID),
		zap.String("role_id", role.ID),
	)
	return &user, nil
}

// ListUserPermissions returns the user's effective permissions across every
// resource. Users may always read their own; reading anyone else's needs
// user management.
func (s *AccessService) ListUserPermissions(ctx context.Context, userID string) (permissions.Effective, error) {
	ctx = ensureContext(ctx)
	identity, err := s.guard.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if identity.UserID != userID {
		if _, err := s.guard.RequireUserManagement(ctx, s.resource); err != nil {
			return nil, err
		}
	}

	var user models.User
	if err := loadOne(ctx, s.db, &user, userID, "User"); err != nil {
		return nil, err
	}

	if loaders, ok := permissions.LoadersFromContext(ctx); ok {
		return loaders.UserPermissions(ctx, user.ID)
	}
	return s.resolver.ResolveAll(ctx, user.ID)
}

// ListUsers returns every user with their role.
func (s *AccessService) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)
	if _, err := s.guard.RequireUserManagement(ctx, s.resource); err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Preload("Role").Order("email ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("access service: list users: %w", err)
	}
	return users, nil
}

// UserAccess pairs a user with their effective actions on one resource.
type UserAccess struct {
	models.User
	Resource string                `json:"resource"`
	Actions  permissions.ActionSet `json:"actions"`
}

// ListUsersWithPermissions lists users together with their actions on
// resource. All sets are resolved in a single batch through the request
// loaders when present.
func (s *AccessService) ListUsersWithPermissions(ctx context.Context, resource string) ([]UserAccess, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if resource == "" {
		resource = s.resource
	}

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}

	var sets map[string]permissions.ActionSet
	if loaders, ok := permissions.LoadersFromContext(ctx); ok {
		sets, err = loaders.LoadPermissions(ctx, ids, resource)
	} else {
		sets, err = s.resolver.ResolveBatch(ctx, ids, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("access service: resolve user permissions: %w", err)
	}

	out := make([]UserAccess, len(users))
	for i, user := range users {
		out[i] = UserAccess{User: user, Resource: resource, Actions: sets[user.ID]}
	}
	return out, nil
}

func (s *AccessService) upsertOverride(ctx context.Context, userID, permissionID string, granted bool) error {
	ctx = ensureContext(ctx)
	identity, user, perm, err := s.loadOverrideTarget(ctx, userID, permissionID)
	if err != nil {
		return err
	}

	row := models.UserPermission{UserID: user.ID, PermissionID: perm.ID, IsGranted: granted}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_granted", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("access service: upsert user permission: %w", err)
	}

	clearRequestCache(ctx)
	s.log.Info("user permission override set",
		zap.String("actor_id", identity.UserID),
		zap.String("user_id", user.ID),
		zap.String("permission_id", perm.ID),
		zap.Bool("granted", granted),
	)
	return nil
}

// loadOverrideTarget runs the manage guards first, then resolves the user
// and permission, so unauthorized callers always see Forbidden.
func (s *AccessService) loadOverrideTarget(ctx context.Context, userID, permissionID string) (identity auth.Identity, user models.User, perm models.Permission, err error) {
	identity, err = s.requireManage(ctx, userID)
	if err != nil {
		return identity, user, perm, err
	}
	if err = loadOne(ctx, s.db, &user, userID, "User"); err != nil {
		return identity, user, perm, err
	}
	if err = loadOne(ctx, s.db, &perm, permissionID, "Permission"); err != nil {
		return identity, user, perm, err
	}
	return identity, user, perm, nil
}
