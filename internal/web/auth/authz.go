package auth

import (
	"context"

	webcontext "github.com/conduit-lang/metastore/internal/web/context"
)

// Owned is anything carrying an owner GUID that edit checks can inspect
type Owned interface {
	GetOwnerGUID() int64
}

// Authorizer decides whether the acting principal may edit a target
type Authorizer interface {
	CanEdit(ctx context.Context, target Owned) (bool, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface
type AuthorizerFunc func(ctx context.Context, target Owned) (bool, error)

// CanEdit implements Authorizer
func (f AuthorizerFunc) CanEdit(ctx context.Context, target Owned) (bool, error) {
	return f(ctx, target)
}

// OwnerAuthorizer grants edit rights to admins, to the owner of the target
// and to any logged-in principal for unowned targets
type OwnerAuthorizer struct {
	session Session
}

// NewOwnerAuthorizer creates an owner-based authorizer
func NewOwnerAuthorizer(session Session) *OwnerAuthorizer {
	return &OwnerAuthorizer{session: session}
}

// CanEdit implements Authorizer
func (a *OwnerAuthorizer) CanEdit(ctx context.Context, target Owned) (bool, error) {
	if webcontext.IgnoreAccess(ctx) || IsAdmin(ctx) {
		return true, nil
	}

	principal := a.session.CurrentPrincipalID(ctx)
	if principal == 0 {
		return false, nil
	}

	owner := target.GetOwnerGUID()
	if owner == 0 {
		return true, nil
	}
	if owner != principal {
		return false, nil
	}
	return HasPermission(ctx, MetadataWrite) || len(rolesOf(ctx)) == 0, nil
}

// CanDelete reports whether the roles carried by ctx allow deletion on top
// of edit rights. Principals without roles fall back to the edit rule.
func CanDelete(ctx context.Context) bool {
	if webcontext.IgnoreAccess(ctx) || len(rolesOf(ctx)) == 0 {
		return true
	}
	return HasPermission(ctx, MetadataDelete)
}

func rolesOf(ctx context.Context) []string {
	return webcontext.GetUserRoles(ctx)
}
