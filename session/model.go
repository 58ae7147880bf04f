package session

import "time"

// Snapshot is the principal data embedded in a session at login time. It is
// a copy, not a live reference: role or permission changes take effect on
// the next login, not mid-session.
type Snapshot struct {
	Email       string
	Name        string
	Roles       []string
	Permissions []string
}

// Session binds a principal to a live login.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	ID             string
	UserID         string
	Snapshot       Snapshot
	AccessToken    string
	RefreshToken   string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
	IP             string
	UserAgent      string
	Active         bool
}

func (s *Session) clone() *Session {
	out := *s
	out.Snapshot.Roles = append([]string(nil), s.Snapshot.Roles...)
	out.Snapshot.Permissions = append([]string(nil), s.Snapshot.Permissions...)
	return &out
}

// expired reports whether the session violates either validity bound.
// A zero inactivity window disables the activity check.
func (s *Session) expired(now time.Time, inactivity time.Duration) bool {
	if !now.Before(s.ExpiresAt) {
		return true
	}
	if inactivity > 0 && now.Sub(s.LastActivityAt) >= inactivity {
		return true
	}
	return false
}
