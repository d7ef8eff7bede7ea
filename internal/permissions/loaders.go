package permissions

import (
	"context"
	"strings"
	"sync"
	"time"
)

// LoaderOptions tunes the request-scoped loaders.
type LoaderOptions struct {
	// DefaultResource backs the convenience checks. Defaults to ResourceFreshAPI.
	DefaultResource string
	Wait            time.Duration
	MaxBatch        int
}

type checkKey struct {
	resource string
	action   string
}

// Loaders is the request-scoped bundle of permission loaders. Each resource
// and each (resource, action) pair gets its own memoising loader, created on
// first use. Values never outlive the bundle.
type Loaders struct {
	ctx      context.Context
	resolver *Resolver
	opts     LoaderOptions

	mu     sync.Mutex
	perms  map[string]*Loader[ActionSet]
	checks map[checkKey]*Loader[bool]
	all    *Loader[Effective]
}

// NewLoaders builds a fresh bundle whose fetches run under ctx.
func NewLoaders(ctx context.Context, resolver *Resolver, opts LoaderOptions) *Loaders {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(opts.DefaultResource) == "" {
		opts.DefaultResource = ResourceFreshAPI
	}
	return &Loaders{
		ctx:      ctx,
		resolver: resolver,
		opts:     opts,
		perms:    make(map[string]*Loader[ActionSet]),
		checks:   make(map[checkKey]*Loader[bool]),
	}
}

// DefaultResource returns the resource used by the convenience checks.
func (l *Loaders) DefaultResource() string {
	return l.opts.DefaultResource
}

// Permissions returns the loader for user action sets on resource.
func (l *Loaders) Permissions(resource string) *Loader[ActionSet] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if loader, ok := l.perms[resource]; ok {
		return loader
	}
	loader := NewLoader(l.ctx, "permissions:"+resource, l.opts.Wait, l.opts.MaxBatch,
		func(ctx context.Context, userIDs []string) (map[string]ActionSet, error) {
			return l.resolver.ResolveBatch(ctx, userIDs, resource)
		})
	l.perms[resource] = loader
	return loader
}

// Check returns the loader answering whether users hold action on resource.
// It is fed by the resource's Permissions loader, so both share one fetch.
func (l *Loaders) Check(resource, action string) *Loader[bool] {
	key := checkKey{resource: resource, action: action}

	l.mu.Lock()
	if loader, ok := l.checks[key]; ok {
		l.mu.Unlock()
		return loader
	}
	l.mu.Unlock()

	perms := l.Permissions(resource)
	loader := NewLoader(l.ctx, "check:"+resource+":"+action, l.opts.Wait, l.opts.MaxBatch,
		func(ctx context.Context, userIDs []string) (map[string]bool, error) {
			sets, err := perms.LoadMany(ctx, userIDs)
			if err != nil {
				return nil, err
			}
			out := make(map[string]bool, len(sets))
			for id, set := range sets {
				out[id] = set.Has(action)
			}
			return out, nil
		})

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.checks[key]; ok {
		return existing
	}
	l.checks[key] = loader
	return loader
}

// All returns the loader for every-resource permission maps.
func (l *Loaders) All() *Loader[Effective] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.all == nil {
		l.all = NewLoader(l.ctx, "permissions:*", l.opts.Wait, l.opts.MaxBatch, l.resolver.ResolveAllBatch)
	}
	return l.all
}

// LoadPermissions resolves many users against one resource in one batch.
func (l *Loaders) LoadPermissions(ctx context.Context, userIDs []string, resource string) (map[string]ActionSet, error) {
	return l.Permissions(resource).LoadMany(ctx, userIDs)
}

// LoadHasPermission answers one (resource, action) question for many users.
func (l *Loaders) LoadHasPermission(ctx context.Context, userIDs []string, resource, action string) (map[string]bool, error) {
	return l.Check(resource, action).LoadMany(ctx, userIDs)
}

// HasPermission answers a single (user, resource, action) question through
// the batch path.
func (l *Loaders) HasPermission(ctx context.Context, userID, resource, action string) (bool, error) {
	return l.Check(resource, action).Load(ctx, userID)
}

// UserPermissions returns the user's permissions across every resource.
func (l *Loaders) UserPermissions(ctx context.Context, userID string) (Effective, error) {
	return l.All().Load(ctx, userID)
}

// CanInviteUsers checks invite_users on the default resource.
func (l *Loaders) CanInviteUsers(ctx context.Context, userID string) (bool, error) {
	return l.HasPermission(ctx, userID, l.opts.DefaultResource, ActionInviteUsers)
}

// CanManageUsers checks user_management on the default resource.
func (l *Loaders) CanManageUsers(ctx context.Context, userID string) (bool, error) {
	return l.HasPermission(ctx, userID, l.opts.DefaultResource, ActionUserManagement)
}

// IsAdmin checks admin on the default resource.
func (l *Loaders) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return l.HasPermission(ctx, userID, l.opts.DefaultResource, ActionAdmin)
}

// IsSystemAdmin checks system_admin on the default resource.
func (l *Loaders) IsSystemAdmin(ctx context.Context, userID string) (bool, error) {
	return l.HasPermission(ctx, userID, l.opts.DefaultResource, ActionSystemAdmin)
}

// ClearCache forgets every memoised value, typically after a mutation made
// earlier in the same request.
func (l *Loaders) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, loader := range l.perms {
		loader.Clear()
	}
	for _, loader := range l.checks {
		loader.Clear()
	}
	if l.all != nil {
		l.all.Clear()
	}
}

type loadersKey struct{}

// WithLoaders returns a context carrying the request's loader bundle.
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loadersKey{}, loaders)
}

// LoadersFromContext returns the bundle attached by WithLoaders, if any.
func LoadersFromContext(ctx context.Context) (*Loaders, bool) {
	if ctx == nil {
		return nil, false
	}
	loaders, ok := ctx.Value(loadersKey{}).(*Loaders)
	return loaders, ok && loaders != nil
}
