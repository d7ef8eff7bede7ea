// Package guards holds the fail-closed authorization checks business logic
// calls before doing any work. Every guard returns the caller identity on
// success so calls can be chained.
package guards

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/permissions"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
	"github.com/freshapi/freshapi/pkg/logger"
	"github.com/freshapi/freshapi/pkg/metrics"
)

const (
	manageResource = "users"
	manageAction   = "manage"
)

// PermissionChecker answers a single permission question. Both the Resolver
// and the request-scoped Loaders satisfy it.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, resource, action string) (bool, error)
}

// Guard evaluates authorization for the identity attached to a context.
type Guard struct {
	resolver *permissions.Resolver
	log      *zap.Logger
}

// New constructs a Guard backed by resolver.
func New(resolver *permissions.Resolver) (*Guard, error) {
	if resolver == nil {
		return nil, errors.New("guard: resolver is required")
	}
	return &Guard{resolver: resolver, log: logger.WithModule("guards")}, nil
}

// RequireAuth fails with ErrUnauthorized when no verified identity is present.
func (g *Guard) RequireAuth(ctx context.Context) (auth.Identity, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, apperrors.ErrUnauthorized
	}
	return identity, nil
}

// RequirePermission requires action on resource. Checks go through the
// request's loaders when present so repeated guards share one fetch.
func (g *Guard) RequirePermission(ctx context.Context, resource, action string) (auth.Identity, error) {
	identity, err := g.RequireAuth(ctx)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(resource, action, "unauthenticated").Inc()
		return auth.Identity{}, err
	}

	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		metrics.PermissionChecks.WithLabelValues(resource, action, "denied").Inc()
		return auth.Identity{}, apperrors.Forbidden(resource, action)
	}

	allowed, err := g.checker(ctx).HasPermission(ctx, identity.UserID, resource, action)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(resource, action, "error").Inc()
		g.log.Error("permission check failed",
			zap.String("user_id", identity.UserID),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err),
		)
		return auth.Identity{}, apperrors.Wrap(err, "permission check failed")
	}
	if !allowed {
		metrics.PermissionChecks.WithLabelValues(resource, action, "denied").Inc()
		return auth.Identity{}, apperrors.Forbidden(resource, action)
	}

	metrics.PermissionChecks.WithLabelValues(resource, action, "allowed").Inc()
	return identity, nil
}

// RequireAdmin requires admin on resource.
func (g *Guard) RequireAdmin(ctx context.Context, resource string) (auth.Identity, error) {
	return g.RequirePermission(ctx, resource, permissions.ActionAdmin)
}

// RequireSystemAdmin requires system_admin on resource.
func (g *Guard) RequireSystemAdmin(ctx context.Context, resource string) (auth.Identity, error) {
	return g.RequirePermission(ctx, resource, permissions.ActionSystemAdmin)
}

// RequireUserManagement requires user_management on resource.
func (g *Guard) RequireUserManagement(ctx context.Context, resource string) (auth.Identity, error) {
	return g.RequirePermission(ctx, resource, permissions.ActionUserManagement)
}

// RequireUserCanManage requires the caller to strictly outrank targetID.
// It does not check any permission grant; callers that gate user management
// combine it with RequireUserManagement.
func (g *Guard) RequireUserCanManage(ctx context.Context, targetID string) (auth.Identity, error) {
	identity, err := g.RequireAuth(ctx)
	if err != nil {
		metrics.HierarchyChecks.WithLabelValues("unauthenticated").Inc()
		return auth.Identity{}, err
	}

	ok, err := g.resolver.CanManage(ctx, identity.UserID, targetID)
	if err != nil {
		metrics.HierarchyChecks.WithLabelValues("error").Inc()
		g.log.Error("hierarchy check failed",
			zap.String("user_id", identity.UserID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return auth.Identity{}, apperrors.Wrap(err, "hierarchy check failed")
	}
	if !ok {
		metrics.HierarchyChecks.WithLabelValues("denied").Inc()
		return auth.Identity{}, apperrors.Forbidden(manageResource, manageAction)
	}

	metrics.HierarchyChecks.WithLabelValues("allowed").Inc()
	return identity, nil
}

func (g *Guard) checker(ctx context.Context) PermissionChecker {
	if loaders, ok := permissions.LoadersFromContext(ctx); ok {
		return loaders
	}
	return g.resolver
}
