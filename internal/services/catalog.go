package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freshapi/freshapi/internal/models"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
)

// CreateResourceInput describes a new resource namespace.
type CreateResourceInput struct {
	Name        string `json:"name" validate:"required,identifier"`
	Description string `json:"description" validate:"max=255"`
}

// CreatePermissionInput describes a new action under an existing resource.
type CreatePermissionInput struct {
	Resource    string `json:"resource" validate:"required,identifier"`
	Action      string `json:"action" validate:"required,identifier"`
	Description string `json:"description" validate:"max=255"`
}

// CreateResource registers a resource outside the boot-time vocabulary.
func (s *AccessService) CreateResource(ctx context.Context, input CreateResourceInput) (*models.Resource, error) {
	ctx = ensureContext(ctx)
	identity, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	resource := &models.Resource{Name: input.Name, Description: input.Description, IsActive: true}
	if err := s.db.WithContext(ctx).Create(resource).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.Conflict("resource name already exists")
		}
		return nil, fmt.Errorf("access service: create resource: %w", err)
	}

	s.log.Info("resource created",
		zap.String("actor_id", identity.UserID),
		zap.String("resource_id", resource.ID),
		zap.String("name", resource.Name),
	)
	return resource, nil
}

// ListResources returns every resource with its permissions.
func (s *AccessService) ListResources(ctx context.Context) ([]models.Resource, error) {
	ctx = ensureContext(ctx)
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	var resources []models.Resource
	err := s.db.WithContext(ctx).
		Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("action ASC") }).
		Order("name ASC").
		Find(&resources).Error
	if err != nil {
		return nil, fmt.Errorf("access service: list resources: %w", err)
	}
	return resources, nil
}

// CreatePermission adds an action to an existing resource.
func (s *AccessService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)
	identity, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	input.Resource = strings.TrimSpace(input.Resource)
	input.Action = strings.TrimSpace(input.Action)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var resource models.Resource
	err = s.db.WithContext(ctx).Where("name = ?", input.Resource).First(&resource).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Resource")
	}
	if err != nil {
		return nil, fmt.Errorf("access service: load resource: %w", err)
	}

	perm := &models.Permission{
		Action:      input.Action,
		ResourceID:  resource.ID,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(perm).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.Conflict("permission already exists for resource")
		}
		return nil, fmt.Errorf("access service: create permission: %w", err)
	}
	perm.Resource = &resource

	s.log.Info("permission created",
		zap.String("actor_id", identity.UserID),
		zap.String("permission_id", perm.ID),
		zap.String("resource", resource.Name),
		zap.String("action", perm.Action),
	)
	return perm, nil
}

// SetPermissionActive activates or deactivates a single permission. Inactive
// permissions are ignored by resolution whether granted by role or override.
func (s *AccessService) SetPermissionActive(ctx context.Context, permissionID string, active bool) error {
	ctx = ensureContext(ctx)
	identity, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	var perm models.Permission
	if err := loadOne(ctx, s.db, &perm, permissionID, "Permission"); err != nil {
		return err
	}
	if perm.IsActive == active {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&perm).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("access service: set permission active: %w", err)
	}

	clearRequestCache(ctx)
	s.log.Info("permission activation changed",
		zap.String("actor_id", identity.UserID),
		zap.String("permission_id", perm.ID),
		zap.Bool("active", active),
	)
	return nil
}

// AssignRolePermission grants a permission to a role below the caller's
// level. Assigning an already
// assigned permission succeeds without change.
func (s *AccessService) AssignRolePermission(ctx context.Context, roleID, permissionID string) error {
	ctx = ensureContext(ctx)
	identity, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	var role models.Role
	if err := loadOne(ctx, s.db, &role, roleID, "Role"); err != nil {
		return err
	}
	if err := s.requireOutranks(ctx, identity, role.Level, actionManage); err != nil {
		return err
	}
	var perm models.Permission
	if err := loadOne(ctx, s.db, &perm, permissionID, "Permission"); err != nil {
		return err
	}

	row := models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("access service: assign role permission: %w", err)
	}

	clearRequestCache(ctx)
	s.log.Info("role permission assigned",
		zap.String("actor_id", identity.UserID),
		zap.String("role_id", role.ID),
		zap.String("permission_id", perm.ID),
	)
	return nil
}

// RemoveRolePermission revokes a permission from a role below the caller's
// level. Removing a
// permission the role does not hold is reported as NotFound.
func (s *AccessService) RemoveRolePermission(ctx context.Context, roleID, permissionID string) error {
	ctx = ensureContext(ctx)
	identity, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	var role models.Role
	if err := loadOne(ctx, s.db, &role, roleID, "Role"); err != nil {
		return err
	}
	if err := s.requireOutranks(ctx, identity, role.Level, actionManage); err != nil {
		return err
	}
	var perm models.Permission
	if err := loadOne(ctx, s.db, &perm, permissionID, "Permission"); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
		Delete(&models.RolePermission{})
	if res.Error != nil {
		return fmt.Errorf("access service: remove role permission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Role permission")
	}

	clearRequestCache(ctx)
	s.log.Info("role permission removed",
		zap.String("actor_id", identity.UserID),
		zap.String("role_id", role.ID),
		zap.String("permission_id", perm.ID),
	)
	return nil
}
