// Package context holds request-scoped values shared by the store and the
// HTTP layer: request id, acting principal, roles and visibility overrides.
package context

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	requestIDKey contextKey = iota
	principalKey
	userRolesKey
	showHiddenKey
	ignoreAccessKey
)

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetPrincipal extracts the acting principal GUID from the context.
// Returns 0 when nobody is logged in.
func GetPrincipal(ctx context.Context) int64 {
	if guid, ok := ctx.Value(principalKey).(int64); ok {
		return guid
	}
	return 0
}

// SetPrincipal adds the acting principal GUID to the context
func SetPrincipal(ctx context.Context, guid int64) context.Context {
	return context.WithValue(ctx, principalKey, guid)
}

// GetUserRoles extracts the user roles from the context
func GetUserRoles(ctx context.Context) []string {
	if roles, ok := ctx.Value(userRolesKey).([]string); ok {
		return roles
	}
	return nil
}

// SetUserRoles adds the user roles to the context
func SetUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, userRolesKey, roles)
}

// ShowHidden reports whether disabled rows are visible to queries
func ShowHidden(ctx context.Context) bool {
	show, _ := ctx.Value(showHiddenKey).(bool)
	return show
}

// WithShowHidden toggles visibility of disabled rows
func WithShowHidden(ctx context.Context, show bool) context.Context {
	return context.WithValue(ctx, showHiddenKey, show)
}

// IgnoreAccess reports whether access-id filtering and edit checks are bypassed
func IgnoreAccess(ctx context.Context) bool {
	ignore, _ := ctx.Value(ignoreAccessKey).(bool)
	return ignore
}

// WithIgnoreAccess toggles access-id filtering and edit checks
func WithIgnoreAccess(ctx context.Context, ignore bool) context.Context {
	return context.WithValue(ctx, ignoreAccessKey, ignore)
}
