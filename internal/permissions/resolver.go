package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/models"
)

// Effective maps resource name to the user's effective action set.
type Effective map[string]ActionSet

// Resolver computes effective permissions from the role and override tables.
// It holds no cache of its own; see Loaders for request-scoped batching.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("permission resolver: db is required")
	}
	return &Resolver{db: db}, nil
}

// Resolve returns the actions userID may perform on the named resource.
// Unknown or inactive resources, missing or inactive users, and users
// without an active role or overrides all resolve to an empty set.
func (r *Resolver) Resolve(ctx context.Context, userID, resourceName string) (ActionSet, error) {
	resolved, err := r.ResolveBatch(ctx, []string{userID}, resourceName)
	if err != nil {
		return nil, err
	}
	if set, ok := resolved[userID]; ok {
		return set, nil
	}
	return ActionSet{}, nil
}

// ResolveAll returns the user's effective permissions across every active
// resource. It runs the same query path as Resolve, only without a resource
// filter, so both apply identical override precedence.
func (r *Resolver) ResolveAll(ctx context.Context, userID string) (Effective, error) {
	resolved, err := r.ResolveAllBatch(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	return resolved[userID], nil
}

// ResolveAllBatch is ResolveAll for many users at once. Every requested id
// has an entry in the result.
func (r *Resolver) ResolveAllBatch(ctx context.Context, userIDs []string) (map[string]Effective, error) {
	resolved, err := r.resolve(ctx, userIDs, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]Effective, len(userIDs))
	for _, id := range userIDs {
		if eff, ok := resolved[strings.TrimSpace(id)]; ok {
			out[id] = eff
			continue
		}
		out[id] = Effective{}
	}
	return out, nil
}

// ResolveBatch resolves many users against one resource using a fixed
// number of grouped queries regardless of how many users are requested.
// Every requested id has an entry in the result.
func (r *Resolver) ResolveBatch(ctx context.Context, userIDs []string, resourceName string) (map[string]ActionSet, error) {
	out := make(map[string]ActionSet, len(userIDs))
	for _, id := range userIDs {
		out[id] = ActionSet{}
	}

	resourceName = strings.TrimSpace(resourceName)
	if resourceName == "" {
		return out, nil
	}

	resolved, err := r.resolve(ctx, userIDs, resourceName)
	if err != nil {
		return nil, err
	}
	for id := range out {
		if set, ok := resolved[strings.TrimSpace(id)][resourceName]; ok {
			out[id] = set
		}
	}
	return out, nil
}

// HasPermission reports whether action is in Resolve(userID, resourceName).
func (r *Resolver) HasPermission(ctx context.Context, userID, resourceName, action string) (bool, error) {
	set, err := r.Resolve(ctx, userID, resourceName)
	if err != nil {
		return false, err
	}
	return set.Has(action), nil
}

// IsAdmin reports whether the user holds the "admin" action on the resource.
func (r *Resolver) IsAdmin(ctx context.Context, userID, resourceName string) (bool, error) {
	return r.HasPermission(ctx, userID, resourceName, ActionAdmin)
}

// IsSystemAdmin reports whether the user holds "system_admin" on the resource.
func (r *Resolver) IsSystemAdmin(ctx context.Context, userID, resourceName string) (bool, error) {
	return r.HasPermission(ctx, userID, resourceName, ActionSystemAdmin)
}

type userRoleRow struct {
	UserID     string
	RoleID     *string
	RoleActive *bool
}

type grantRow struct {
	OwnerID      string
	Action       string
	ResourceName string
	IsGranted    bool
}

// resolve is the single resolution path. With resourceName set it looks the
// resource up first and short-circuits when it is absent or inactive; with
// an empty name it covers every active resource.
func (r *Resolver) resolve(ctx context.Context, userIDs []string, resourceName string) (map[string]Effective, error) {
	ctx = ensureContext(ctx)
	ids := uniqueIDs(userIDs)
	out := make(map[string]Effective, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	db := r.db.WithContext(ctx)

	var resourceID string
	if resourceName != "" {
		var resource models.Resource
		err := db.Select("id").
			Where("name = ? AND is_active = ?", resourceName, true).
			Take(&resource).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("permission resolver: load resource: %w", err)
		}
		resourceID = resource.ID
	}

	var users []userRoleRow
	if err := db.Model(&models.User{}).
		Select("users.id AS user_id, roles.id AS role_id, roles.is_active AS role_active").
		Joins("LEFT JOIN roles ON roles.id = users.role_id").
		Where("users.id IN ? AND users.is_active = ?", ids, true).
		Scan(&users).Error; err != nil {
		return nil, fmt.Errorf("permission resolver: load users: %w", err)
	}
	if len(users) == 0 {
		return out, nil
	}

	activeUsers := make([]string, 0, len(users))
	roleOf := make(map[string]string, len(users))
	roleSet := make(map[string]struct{})
	for _, u := range users {
		activeUsers = append(activeUsers, u.UserID)
		if u.RoleID == nil || u.RoleActive == nil || !*u.RoleActive {
			continue
		}
		roleOf[u.UserID] = *u.RoleID
		roleSet[*u.RoleID] = struct{}{}
	}

	roleGrants := make(map[string]Effective, len(roleSet))
	if len(roleSet) > 0 {
		roleIDs := make([]string, 0, len(roleSet))
		for id := range roleSet {
			roleIDs = append(roleIDs, id)
		}

		var rows []grantRow
		q := grantQuery(db, "role_permissions", resourceID).
			Select("role_permissions.role_id AS owner_id, permissions.action AS action, resources.name AS resource_name").
			Where("role_permissions.role_id IN ?", roleIDs)
		if err := q.Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("permission resolver: load role permissions: %w", err)
		}
		for _, row := range rows {
			eff, ok := roleGrants[row.OwnerID]
			if !ok {
				eff = Effective{}
				roleGrants[row.OwnerID] = eff
			}
			set, ok := eff[row.ResourceName]
			if !ok {
				set = ActionSet{}
				eff[row.ResourceName] = set
			}
			set.Add(row.Action)
		}
	}

	var overrideRows []grantRow
	q := grantQuery(db, "user_permissions", resourceID).
		Select("user_permissions.user_id AS owner_id, permissions.action AS action, resources.name AS resource_name, user_permissions.is_granted AS is_granted").
		Where("user_permissions.user_id IN ?", activeUsers)
	if err := q.Scan(&overrideRows).Error; err != nil {
		return nil, fmt.Errorf("permission resolver: load user overrides: %w", err)
	}
	overrides := make(map[string]map[string]Overrides, len(activeUsers))
	for _, row := range overrideRows {
		byResource, ok := overrides[row.OwnerID]
		if !ok {
			byResource = make(map[string]Overrides)
			overrides[row.OwnerID] = byResource
		}
		o, ok := byResource[row.ResourceName]
		if !ok {
			o = Overrides{}
			byResource[row.ResourceName] = o
		}
		o[row.Action] = row.IsGranted
	}

	for _, userID := range activeUsers {
		grants := roleGrants[roleOf[userID]]
		userOverrides := overrides[userID]

		eff := Effective{}
		for name, set := range grants {
			eff[name] = Merge(set, userOverrides[name])
		}
		for name, o := range userOverrides {
			if _, done := eff[name]; done {
				continue
			}
			eff[name] = Merge(nil, o)
		}
		if resourceName != "" {
			if _, ok := eff[resourceName]; !ok {
				eff[resourceName] = ActionSet{}
			}
		}
		out[userID] = eff
	}

	return out, nil
}

// grantQuery joins permission and resource onto a junction table and applies
// the activity filters. Without a resourceID every active resource qualifies;
// with one, activity was already checked by name.
func grantQuery(db *gorm.DB, junction, resourceID string) *gorm.DB {
	q := db.Table(junction).
		Joins("JOIN permissions ON permissions.id = " + junction + ".permission_id").
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("permissions.is_active = ?", true)
	if resourceID != "" {
		return q.Where("permissions.resource_id = ?", resourceID)
	}
	return q.Where("resources.is_active = ?", true)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
