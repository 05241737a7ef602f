package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"feedgate/internal/domain"
	"feedgate/internal/http/response"
	"feedgate/internal/observability"
	"feedgate/internal/security"
	"feedgate/internal/service"
)

type contextKey string

const identityContextKey contextKey = "identity"

var errNoIdentity = errors.New("no identity evidence")

// Mediator converts session or token evidence into a RequestIdentity, or
// rejects the request before it reaches its handler. Gates are attached
// per route group; there is no global fallback to an anonymous identity.
type Mediator struct {
	Sessions     service.SessionStore
	Tokens       service.TokenCache
	Cookies      *security.SessionCookies
	StoreTimeout time.Duration
}

// RequireSession gates browser page routes. With a non-empty redirectTo
// the rejection is a redirect (page navigation); otherwise a structured
// 401.
func (m *Mediator) RequireSession(redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := m.fromSession(r)
			if err != nil {
				m.reject(w, r, "session", redirectTo, err)
				return
			}
			observability.RecordAccessDecision(r.Context(), "session", "allow", "cookie")
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireToken gates bearer API routes. The token comes from the
// Authorization header or, for clients that cannot set headers, the
// access_token query parameter.
func (m *Mediator) RequireToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, source, err := m.fromToken(r)
			if err != nil {
				m.reject(w, r, "token", "", err)
				return
			}
			observability.RecordAccessDecision(r.Context(), "token", "allow", source)
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireIdentity accepts either mechanism. The session is tried first:
// it is the server-issued, higher-trust channel, so it wins whenever
// both are present.
func (m *Mediator) RequireIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := m.fromSession(r)
			if err == nil {
				observability.RecordAccessDecision(r.Context(), "either", "allow", "cookie")
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
				return
			}
			if errors.Is(err, service.ErrUnavailable) {
				m.reject(w, r, "either", "", err)
				return
			}
			identity, source, err := m.fromToken(r)
			if err != nil {
				m.reject(w, r, "either", "", err)
				return
			}
			observability.RecordAccessDecision(r.Context(), "either", "allow", source)
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

func (m *Mediator) fromSession(r *http.Request) (domain.RequestIdentity, error) {
	sid := m.Cookies.Read(r)
	if sid == "" {
		return domain.RequestIdentity{}, errNoIdentity
	}
	ctx, cancel := m.bound(r.Context())
	defer cancel()
	session, err := m.Sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return domain.RequestIdentity{}, errNoIdentity
		}
		return domain.RequestIdentity{}, storeFailure(err)
	}
	if !session.LoggedIn() {
		return domain.RequestIdentity{}, errNoIdentity
	}
	return domain.RequestIdentity{
		Login:       session.Login,
		AccessToken: session.AccessToken,
		SessionID:   session.ID,
	}, nil
}

func (m *Mediator) fromToken(r *http.Request) (domain.RequestIdentity, string, error) {
	raw, source := bearerToken(r)
	if raw == "" {
		return domain.RequestIdentity{}, source, errNoIdentity
	}
	ctx, cancel := m.bound(r.Context())
	defer cancel()
	login, ok, err := m.Tokens.Lookup(ctx, raw)
	if err != nil {
		return domain.RequestIdentity{}, source, storeFailure(err)
	}
	if !ok {
		return domain.RequestIdentity{}, source, errNoIdentity
	}
	return domain.RequestIdentity{Login: login, AccessToken: raw}, source, nil
}

func (m *Mediator) reject(w http.ResponseWriter, r *http.Request, gate, redirectTo string, err error) {
	if errors.Is(err, service.ErrUnavailable) {
		observability.RecordAccessDecision(r.Context(), gate, "unavailable", "none")
		response.Error(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "a backing store is unavailable, retry later", nil)
		return
	}
	observability.RecordAccessDecision(r.Context(), gate, "deny", "none")
	if redirectTo != "" {
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
		return
	}
	response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
}

func (m *Mediator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.StoreTimeout)
}

func bearerToken(r *http.Request) (token, source string) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:]), "bearer"
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, "query"
	}
	return "", "none"
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
}

func withIdentity(ctx context.Context, identity domain.RequestIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// ContextWithIdentity binds an identity directly, bypassing the gates.
// Intended for handler tests and internal dispatch, not request paths.
func ContextWithIdentity(ctx context.Context, identity domain.RequestIdentity) context.Context {
	return withIdentity(ctx, identity)
}

// IdentityFromContext returns the identity bound by a mediator gate.
// Handlers behind a gate may treat presence as a precondition.
func IdentityFromContext(ctx context.Context) (domain.RequestIdentity, bool) {
	identity, ok := ctx.Value(identityContextKey).(domain.RequestIdentity)
	return identity, ok
}
