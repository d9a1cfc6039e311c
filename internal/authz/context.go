package authz

import "context"

type contextKey struct{}

var rolesKey contextKey

// ContextWithRoles stores the authenticated actor's role IDs. The identity
// layer owning authentication is expected to call this before any gated
// handler runs.
func ContextWithRoles(ctx context.Context, roleIDs []int64) context.Context {
	return context.WithValue(ctx, rolesKey, roleIDs)
}

// RolesFromContext returns the actor's role IDs, or nil when no identity was
// attached.
func RolesFromContext(ctx context.Context) []int64 {
	roleIDs, _ := ctx.Value(rolesKey).([]int64)
	return roleIDs
}
