package domain

import "time"

// Session is the server-held browser session, keyed by the opaque id
// carried in the session cookie. It is written exactly once with both
// Login and AccessToken populated, so readers never observe a half-built
// "logged in" session.
type Session struct {
	ID          string    `json:"id"`
	Login       string    `json:"login"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoggedIn reports whether the session carries a complete identity.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Login != "" && s.AccessToken != ""
}

// RequestIdentity is the caller identity resolved for a single request.
// SessionID is empty for pure API-token callers; AccessToken is kept so
// handlers can forward it to downstream calls without re-deriving it.
type RequestIdentity struct {
	Login       string
	AccessToken string
	SessionID   string
}
