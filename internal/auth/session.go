// Package auth exposes the current session identity. The core reads it
// as an input that switches mutations between the remote and the local
// fallback path; the authentication provider itself is external.
package auth

// Session is the current user identity.
type Session struct {
	UserID        string
	Authenticated bool
}

// Anonymous is the session used when nobody is signed in.
var Anonymous = Session{}

// Equal reports whether two sessions refer to the same identity.
func (s Session) Equal(other Session) bool {
	return s.UserID == other.UserID && s.Authenticated == other.Authenticated
}
