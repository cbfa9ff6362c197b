package auth

import "context"

// RBACPermission represents a specific action that can be performed on metadata
type RBACPermission string

const (
	MetadataRead   RBACPermission = "metadata.read"
	MetadataWrite  RBACPermission = "metadata.write"
	MetadataDelete RBACPermission = "metadata.delete"

	// SystemAdmin bypasses ownership and access checks
	SystemAdmin RBACPermission = "system.admin"
)

// Role represents a user role with a set of permissions
type Role struct {
	Name        string
	Permissions []RBACPermission
}

// HasPermission checks if the role has a specific permission
func (r *Role) HasPermission(permission RBACPermission) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Predefined roles
var (
	// AdminRole has all permissions
	AdminRole = &Role{
		Name: "admin",
		Permissions: []RBACPermission{
			MetadataRead, MetadataWrite, MetadataDelete,
			SystemAdmin,
		},
	}

	// EditorRole can read and write metadata it owns
	EditorRole = &Role{
		Name:        "editor",
		Permissions: []RBACPermission{MetadataRead, MetadataWrite},
	}

	// ViewerRole can only read metadata
	ViewerRole = &Role{
		Name:        "viewer",
		Permissions: []RBACPermission{MetadataRead},
	}
)

// GetRoleByName returns a predefined role by name.
// Returns nil if the role is not found.
func GetRoleByName(name string) *Role {
	switch name {
	case "admin":
		return AdminRole
	case "editor":
		return EditorRole
	case "viewer":
		return ViewerRole
	default:
		return nil
	}
}

// HasPermission reports whether any role carried by the context grants permission
func HasPermission(ctx context.Context, permission RBACPermission) bool {
	for _, name := range rolesOf(ctx) {
		if role := GetRoleByName(name); role != nil && role.HasPermission(permission) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the context carries system admin rights
func IsAdmin(ctx context.Context) bool {
	return HasPermission(ctx, SystemAdmin)
}
