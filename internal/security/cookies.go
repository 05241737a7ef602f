package security

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionCookies carries the opaque session id in a signed cookie. Only
// the id crosses the wire; the session state itself stays server-side.
type SessionCookies struct {
	store  *sessions.CookieStore
	name   string
	maxAge int
}

func NewSessionCookies(key []byte, name string, maxAge int, secure bool) *SessionCookies {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionCookies{store: store, name: name, maxAge: maxAge}
}

// Read returns the session id from the request cookie, or "" when the
// cookie is absent or fails signature verification.
func (c *SessionCookies) Read(r *http.Request) string {
	sess, err := c.store.Get(r, c.name)
	if err != nil {
		return ""
	}
	id, _ := sess.Values["sid"].(string)
	return id
}

// Write binds the session id to the browser.
func (c *SessionCookies) Write(w http.ResponseWriter, r *http.Request, sessionID string) error {
	sess, _ := c.store.Get(r, c.name)
	sess.Values["sid"] = sessionID
	return sess.Save(r, w)
}

// Clear expires the cookie client-side. The server-side session is
// deleted separately by the auth service.
func (c *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, c.name)
	delete(sess.Values, "sid")
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
