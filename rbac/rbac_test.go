package rbac

import (
	"errors"
	"testing"
)

func testPrincipal() Principal {
	return Principal{
		ID:    "u-1",
		Email: "dev@example.com",
		Roles: []Role{
			{
				ID:   "r-admin",
				Name: "admin",
				Permissions: []Permission{
					{Name: "data:read", Resource: WildcardResource},
					{Name: "data:write", Resource: "projects"},
				},
			},
			{
				ID:   "r-viewer",
				Name: "viewer",
				Permissions: []Permission{
					{Name: "data:read", Resource: "reports"},
				},
			},
		},
	}
}

func TestHasPermissionWildcardResource(t *testing.T) {
	p := testPrincipal()

	if !HasPermission(p, "data:read", "projects") {
		t.Fatalf("wildcard resource should satisfy any resource")
	}
	if !HasPermission(p, "data:read", "reports") {
		t.Fatalf("wildcard resource should satisfy any resource")
	}
	if !HasPermission(p, "data:read", "") {
		t.Fatalf("empty resource should match any grant")
	}
}

func TestHasPermissionExactResource(t *testing.T) {
	p := testPrincipal()

	if !HasPermission(p, "data:write", "projects") {
		t.Fatalf("exact resource match expected")
	}
	if HasPermission(p, "data:write", "reports") {
		t.Fatalf("data:write is scoped to projects only")
	}
	if HasPermission(p, "data:delete", "projects") {
		t.Fatalf("unknown permission name should fail")
	}
}

func TestEmptyPrincipalSatisfiesNothing(t *testing.T) {
	p := Principal{ID: "u-2"}

	if HasPermission(p, "data:read", "projects") {
		t.Fatalf("principal with no roles must satisfy no permission")
	}
	if HasRole(p, "admin") {
		t.Fatalf("principal with no roles must satisfy no role check")
	}
	if HasAnyPermission(p, []string{"data:read", "data:write"}, "") {
		t.Fatalf("any-combinator should fail without roles")
	}
}

func TestCombinators(t *testing.T) {
	p := testPrincipal()

	if !HasAnyPermission(p, []string{"nope", "data:read"}, "projects") {
		t.Fatalf("any should pass when one permission matches")
	}
	if HasAnyPermission(p, []string{"nope", "also:nope"}, "projects") {
		t.Fatalf("any should fail when none match")
	}
	if !HasAllPermissions(p, []string{"data:read", "data:write"}, "projects") {
		t.Fatalf("all should pass when every permission matches")
	}
	if HasAllPermissions(p, []string{"data:read", "data:delete"}, "projects") {
		t.Fatalf("all should fail on a single miss")
	}
	if !HasAllPermissions(p, nil, "projects") {
		t.Fatalf("all over an empty list is vacuously true")
	}
	if !HasAnyRole(p, []string{"viewer", "owner"}) {
		t.Fatalf("any-role should pass on a single match")
	}
}

func TestUserPermissionsDedup(t *testing.T) {
	p := testPrincipal()

	perms := UserPermissions(p)
	seen := map[string]int{}
	for _, perm := range perms {
		seen[perm.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			t.Fatalf("permission %q appears %d times", key, n)
		}
	}
	if len(perms) != 3 {
		t.Fatalf("expected 3 distinct permissions, got %d", len(perms))
	}
}

func TestRoleNames(t *testing.T) {
	names := RoleNames(testPrincipal())
	if len(names) != 2 || names[0] != "admin" || names[1] != "viewer" {
		t.Fatalf("unexpected role names: %v", names)
	}
}

func TestContextBinding(t *testing.T) {
	ctx := NewContext(testPrincipal(), "projects", "write")

	if !ctx.HasPermission("data:write") {
		t.Fatalf("bound resource should be applied")
	}
	if !ctx.HasRole("admin") {
		t.Fatalf("role check should pass through")
	}

	scoped := NewContext(testPrincipal(), "reports", "write")
	if scoped.HasPermission("data:write") {
		t.Fatalf("data:write must not apply to reports")
	}
}

func TestRequirementOrSemantics(t *testing.T) {
	ctx := NewContext(testPrincipal(), "projects", "write")

	// Default mode passes when any listed role or permission matches.
	if err := ctx.Evaluate(Requirement{Roles: []string{"owner"}, Permissions: []string{"data:write"}}); err != nil {
		t.Fatalf("expected OR requirement to pass: %v", err)
	}
	if err := ctx.Evaluate(Requirement{Roles: []string{"owner"}, Permissions: []string{"data:delete"}}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRequirementRequireAll(t *testing.T) {
	ctx := NewContext(testPrincipal(), "projects", "write")

	req := Requirement{
		Roles:       []string{"admin", "viewer"},
		Permissions: []string{"data:read", "data:write"},
		RequireAll:  true,
	}
	if err := ctx.Evaluate(req); err != nil {
		t.Fatalf("expected require-all to pass: %v", err)
	}

	req.Roles = append(req.Roles, "owner")
	if err := ctx.Evaluate(req); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRequirementResourceOverride(t *testing.T) {
	ctx := NewContext(testPrincipal(), "reports", "write")

	if err := ctx.Evaluate(Requirement{Permissions: []string{"data:write"}}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("bound resource reports should deny data:write")
	}
	if err := ctx.Evaluate(Requirement{Permissions: []string{"data:write"}, Resource: "projects"}); err != nil {
		t.Fatalf("resource override should grant: %v", err)
	}
}

func TestEmptyRequirementPasses(t *testing.T) {
	ctx := NewContext(Principal{ID: "u-2"}, "", "")
	if err := ctx.Evaluate(Requirement{}); err != nil {
		t.Fatalf("empty requirement must pass: %v", err)
	}
}
