package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/freshapi/freshapi/internal/models"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
)

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name        string `json:"name" validate:"required,identifier"`
	Description string `json:"description" validate:"max=255"`
	Level       int    `json:"level" validate:"gte=0,lte=1000"`
}

// UpdateRoleInput describes mutable fields on a role. Nil fields are left unchanged.
type UpdateRoleInput struct {
	Description *string `json:"description" validate:"omitempty,max=255"`
	Level       *int    `json:"level" validate:"omitempty,gte=0,lte=1000"`
}

// CreateRole registers a new role. The new level must sit below the caller's.
func (s *AccessService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
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
	if err := s.requireOutranks(ctx, identity, input.Level, actionManage); err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        input.Name,
		Description: input.Description,
		Level:       input.Level,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.Conflict("role name already exists")
		}
		return nil, fmt.Errorf("access service: create role: %w", err)
	}

	s.log.Info("role created",
		zap.String("actor_id", identity.UserID),
		zap.String("role_id", role.ID),
		zap.String("name", role.Name),
		zap.Int("level", role.Level),
	)
	return role, nil
}

// UpdateRole modifies role metadata. Name is immutable; it identifies the
// role in seeds and configuration. Both the current and the requested level
// must sit below the caller's.
func (s *AccessService) UpdateRole(ctx context.Context, roleID string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)
	identity, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var role models.Role
	if err := loadOne(ctx, s.db, &role, roleID, "Role"); err != nil {
		return nil, err
	}
	if err := s.requireOutranks(ctx, identity, role.Level, actionManage); err != nil {
		return nil, err
	}
	if input.Level != nil {
		if err := s.requireOutranks(ctx, identity, *input.Level, actionManage); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != role.Description {
			updates["description"] = desc
		}
	}
	if input.Level != nil && *input.Level != role.Level {
		updates["level"] = *input.Level
	}
	if len(updates) == 0 {
		return &role, nil
	}

	if err := s.db.WithContext(ctx).Model(&role).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("access service: update role: %w", err)
	}
	if err := s.db.WithContext(ctx).First(&role, "id = ?", role.ID).Error; err != nil {
		return nil, fmt.Errorf("access service: reload role: %w", err)
	}

	clearRequestCache(ctx)
	s.log.Info("role updated",
		zap.String("actor_id", identity.UserID),
		zap.String("role_id", role.ID),
		zap.Any("changes", updates),
	)
	return &role, nil
}

// SetRoleActive activates or deactivates a role below the caller's level. A
// deactivated role contributes nothing to its users' permissions but keeps
// its rank.
func (s *AccessService) SetRoleActive(ctx context.Context, roleID string, active bool) error {
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
	if role.IsActive == active {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&role).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("access service: set role active: %w", err)
	}

	clearRequestCache(ctx)
	s.log.Info("role activation changed",
		zap.String("actor_id", identity.UserID),
		zap.String("role_id", role.ID),
		zap.Bool("active", active),
	)
	return nil
}

// ListRoles returns every role ordered by descending level.
func (s *AccessService) ListRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("level DESC").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("access service: list roles: %w", err)
	}
	return roles, nil
}
