package rbac

import "errors"

// ErrPermissionDenied is an exported constant or variable used by the authentication engine.
var ErrPermissionDenied = errors.New("permission denied")

// WildcardResource matches every resource in a permission grant.
const WildcardResource = "*"

// HasPermission reports whether any of the principal's roles carries a
// permission with the given name whose resource matches resource or the
// wildcard. An empty resource matches any grant of that name.
func HasPermission(p Principal, name, resource string) bool {
	for _, role := range p.Roles {
		for _, perm := range role.Permissions {
			if perm.Name != name {
				continue
			}
			if resource == "" || perm.Resource == WildcardResource || perm.Resource == resource {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission is the OR combinator over a permission-name list.
func HasAnyPermission(p Principal, names []string, resource string) bool {
	for _, name := range names {
		if HasPermission(p, name, resource) {
			return true
		}
	}
	return false
}

// HasAllPermissions is the AND combinator over a permission-name list.
// An empty list is vacuously satisfied.
func HasAllPermissions(p Principal, names []string, resource string) bool {
	for _, name := range names {
		if !HasPermission(p, name, resource) {
			return false
		}
	}
	return true
}

// HasRole reports direct role-name membership.
func HasRole(p Principal, name string) bool {
	for _, role := range p.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the names.
func HasAnyRole(p Principal, names []string) bool {
	for _, name := range names {
		if HasRole(p, name) {
			return true
		}
	}
	return false
}

// UserPermissions returns the principal's effective permission set: the
// union across roles, de-duplicated by name:resource. Order follows first
// appearance across the role list.
func UserPermissions(p Principal) []Permission {
	seen := make(map[string]struct{})
	var out []Permission
	for _, role := range p.Roles {
		for _, perm := range role.Permissions {
			key := perm.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, perm)
		}
	}
	return out
}

// RoleNames returns the principal's role names in assignment order.
func RoleNames(p Principal) []string {
	out := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		out = append(out, role.Name)
	}
	return out
}

// PermissionKeys returns the effective permission keys (name:resource).
func PermissionKeys(p Principal) []string {
	perms := UserPermissions(p)
	out := make([]string, 0, len(perms))
	for _, perm := range perms {
		out = append(out, perm.Key())
	}
	return out
}
