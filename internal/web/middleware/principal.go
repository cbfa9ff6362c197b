package middleware

import (
	"net/http"

	webcontext "github.com/conduit-lang/metastore/internal/web/context"
)

// Acting runs every request as the given principal with the given roles.
// A zero principal serves anonymous requests.
func Acting(principal int64, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if principal != 0 {
				ctx = webcontext.SetPrincipal(ctx, principal)
			}
			if len(roles) > 0 {
				ctx = webcontext.SetUserRoles(ctx, roles)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
