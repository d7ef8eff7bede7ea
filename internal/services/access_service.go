package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/permissions"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
	"github.com/freshapi/freshapi/pkg/logger"
)

// actionManage labels Forbidden errors raised by role hierarchy checks.
const actionManage = "manage"

// AccessService performs the administrative mutations behind the
// authorization model: roles, the resource catalog, role grants, per-user
// overrides and role assignment. Every method runs its guard before touching
// the referenced rows, so unauthorized callers cannot learn which rows exist.
type AccessService struct {
	db       *gorm.DB
	guard    *guards.Guard
	resolver *permissions.Resolver
	resource string
	log      *zap.Logger
}

// AccessServiceOptions configures NewAccessService.
type AccessServiceOptions struct {
	// Resource is the resource whose admin and user_management actions gate
	// the mutations. Defaults to permissions.ResourceFreshAPI.
	Resource string
}

// NewAccessService constructs an AccessService.
func NewAccessService(db *gorm.DB, guard *guards.Guard, resolver *permissions.Resolver, opts AccessServiceOptions) (*AccessService, error) {
	if db == nil {
		return nil, errors.New("access service: db is required")
	}
	if guard == nil {
		return nil, errors.New("access service: guard is required")
	}
	if resolver == nil {
		return nil, errors.New("access service: resolver is required")
	}

	resource := strings.TrimSpace(opts.Resource)
	if resource == "" {
		resource = permissions.ResourceFreshAPI
	}

	return &AccessService{
		db:       db,
		guard:    guard,
		resolver: resolver,
		resource: resource,
		log:      logger.WithModule("access"),
	}, nil
}

// requireAdmin gates role, resource and permission mutations.
func (s *AccessService) requireAdmin(ctx context.Context) (auth.Identity, error) {
	return s.guard.RequireAdmin(ctx, s.resource)
}

// requireManage gates mutations that target another user: the caller needs
// user_management and must strictly outrank the target.
func (s *AccessService) requireManage(ctx context.Context, targetID string) (auth.Identity, error) {
	if _, err := s.guard.RequireUserManagement(ctx, s.resource); err != nil {
		return auth.Identity{}, err
	}
	return s.guard.RequireUserCanManage(ctx, targetID)
}

// requireOutranks rejects the caller unless their role level is strictly
// above level. Role mutations use it so nobody can create, edit or extend a
// role at or above their own rank.
func (s *AccessService) requireOutranks(ctx context.Context, identity auth.Identity, level int, action string) error {
	callerLevel, err := s.resolver.RoleLevel(ctx, identity.UserID)
	if err != nil {
		return apperrors.Wrap(err, "hierarchy check failed")
	}
	if callerLevel <= level {
		return apperrors.Forbidden("roles", action)
	}
	return nil
}
