package rbac

import "time"

// Permission is an atomic capability. Two permissions are equivalent when
// Name and Resource match; Conditions are carried opaquely for callers that
// evaluate them out-of-band.
type Permission struct {
	ID         string
	Name       string
	Resource   string
	Action     string
	Conditions map[string]string
}

// Key returns the de-duplication key for effective permission sets.
func (p Permission) Key() string {
	return p.Name + ":" + p.Resource
}

// Role is a named bundle of permissions. System roles are built-in and
// distinguished from custom ones by the System flag.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	System      bool
}

// Principal is an identity subject to access checks. The auth engine reads
// and writes only the fields relevant to credentials and activity; the rest
// belongs to the external user store.
type Principal struct {
	ID            string
	Email         string
	Username      string
	Name          string
	FirstName     string
	LastName      string
	AvatarURL     string
	Roles         []Role
	EmailVerified bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   time.Time
}
