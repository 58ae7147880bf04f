package rbac

// Context is an ephemeral, per-check view of one principal bound to a
// resource and action. It carries no mutable state and may be discarded
// after use — nothing is ever persisted.
type Context struct {
	principal Principal

	Resource string
	Action   string
}

// NewContext binds the rbac predicates to a principal and a
// resource/action pair.
func NewContext(p Principal, resource, action string) *Context {
	return &Context{principal: p, Resource: resource, Action: action}
}

// Principal returns the bound principal.
func (c *Context) Principal() Principal { return c.principal }

// HasPermission checks the named permission against the bound resource.
func (c *Context) HasPermission(name string) bool {
	return HasPermission(c.principal, name, c.Resource)
}

// HasAnyPermission describes the hasanypermission operation and its observable behavior.
//
// HasAnyPermission does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Context) HasAnyPermission(names []string) bool {
	return HasAnyPermission(c.principal, names, c.Resource)
}

// HasAllPermissions describes the hasallpermissions operation and its observable behavior.
//
// HasAllPermissions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Context) HasAllPermissions(names []string) bool {
	return HasAllPermissions(c.principal, names, c.Resource)
}

// HasRole describes the hasrole operation and its observable behavior.
//
// HasRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Context) HasRole(name string) bool {
	return HasRole(c.principal, name)
}

// HasAnyRole describes the hasanyrole operation and its observable behavior.
//
// HasAnyRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Context) HasAnyRole(names []string) bool {
	return HasAnyRole(c.principal, names)
}

// Requirement is the guard input evaluated against a [Context]: role names,
// permission names, an optional resource override, and the combinator mode.
// RequireAll=false (the default) is OR semantics across the listed names.
type Requirement struct {
	Roles       []string
	Permissions []string
	Resource    string
	RequireAll  bool
}

// Evaluate checks the requirement against the context. An empty requirement
// passes; a failed check returns [ErrPermissionDenied].
func (c *Context) Evaluate(req Requirement) error {
	resource := req.Resource
	if resource == "" {
		resource = c.Resource
	}

	if len(req.Roles) == 0 && len(req.Permissions) == 0 {
		return nil
	}

	if req.RequireAll {
		for _, role := range req.Roles {
			if !HasRole(c.principal, role) {
				return ErrPermissionDenied
			}
		}
		if !HasAllPermissions(c.principal, req.Permissions, resource) {
			return ErrPermissionDenied
		}
		return nil
	}

	if HasAnyRole(c.principal, req.Roles) {
		return nil
	}
	if HasAnyPermission(c.principal, req.Permissions, resource) {
		return nil
	}
	return ErrPermissionDenied
}
