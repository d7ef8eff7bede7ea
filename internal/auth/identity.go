package auth

import "context"

// Identity is the verified caller attached to a request by the transport.
type Identity struct {
	UserID string
	Email  string
}

type identityContextKey struct{}

// WithIdentity returns a derived context carrying the caller identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the caller identity. An identity without a
// user id is treated as absent.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, false
	}
	return identity, true
}
