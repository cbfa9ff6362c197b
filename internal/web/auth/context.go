package auth

import (
	"context"

	webcontext "github.com/conduit-lang/metastore/internal/web/context"
)

// GetCurrentPrincipal retrieves the acting principal GUID from the context.
// Returns 0 if no user is authenticated.
func GetCurrentPrincipal(ctx context.Context) int64 {
	return webcontext.GetPrincipal(ctx)
}

// SetCurrentPrincipal adds the principal GUID to the context
func SetCurrentPrincipal(ctx context.Context, guid int64) context.Context {
	return webcontext.SetPrincipal(ctx, guid)
}

// HasRole reports whether the context carries the named role
func HasRole(ctx context.Context, name string) bool {
	for _, role := range webcontext.GetUserRoles(ctx) {
		if role == name {
			return true
		}
	}
	return false
}
