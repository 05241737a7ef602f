package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"feedgate/internal/domain"
	"feedgate/internal/observability"
	"feedgate/internal/repository"
	"feedgate/internal/security"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

type RegisterInput struct {
	Login       string `json:"login"`
	Credential  string `json:"credential"`
	DisplayName string `json:"displayName"`
}

type Credentials struct {
	Login      string `json:"login"`
	Credential string `json:"credential"`
}

// LoginResult carries the freshly minted session id and access token.
// The session id goes into the cookie; the token goes back to the client
// for bearer API calls.
type LoginResult struct {
	SessionID   string
	AccessToken string
}

// AuthService owns the credential lifecycle: registration against the
// identity store, and the paired session/token issuance and revocation.
type AuthService struct {
	users        repository.UserRepository
	tokens       TokenCache
	sessions     SessionStore
	tokenTTL     time.Duration
	sessionTTL   time.Duration
	storeTimeout time.Duration
}

func NewAuthService(users repository.UserRepository, tokens TokenCache, sessions SessionStore, tokenTTL, sessionTTL, storeTimeout time.Duration) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		sessions:     sessions,
		tokenTTL:     tokenTTL,
		sessionTTL:   sessionTTL,
		storeTimeout: storeTimeout,
	}
}

// Register validates the input shape and persists a new user. The unique
// index on login decides concurrent registrations: exactly one wins, the
// rest observe ErrDuplicateLogin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if !loginPattern.MatchString(in.Login) || len(in.Credential) < 8 {
		observability.RecordAuthEvent(ctx, "register", "invalid_input")
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Login:          in.Login,
		CredentialHash: string(hash),
		DisplayName:    in.DisplayName,
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateLogin) {
			observability.RecordAuthEvent(ctx, "register", "conflict")
			return nil, err
		}
		observability.RecordAuthEvent(ctx, "register", "unavailable")
		return nil, storeErr(err)
	}
	observability.RecordAuthEvent(ctx, "register", "success")
	return user, nil
}

// Login resolves the user, checks the credential, and mints a fresh
// token plus a complete session bound to it. A crash between the token
// write and the session write leaves a token without a session; that
// window is accepted and not compensated.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	user, err := s.users.FindByLogin(ctx, creds.Login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(ctx, "login", "rejected")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthEvent(ctx, "login", "unavailable")
		return nil, storeErr(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.CredentialHash), []byte(creds.Credential)) != nil {
		observability.RecordAuthEvent(ctx, "login", "rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := security.NewAccessToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Put(ctx, token, user.Login, s.tokenTTL); err != nil {
		observability.RecordAuthEvent(ctx, "login", "unavailable")
		return nil, storeErr(err)
	}
	session := &domain.Session{
		ID:          uuid.NewString(),
		Login:       user.Login,
		AccessToken: token,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.Put(ctx, session, s.sessionTTL); err != nil {
		observability.RecordAuthEvent(ctx, "login", "unavailable")
		return nil, storeErr(err)
	}
	observability.RecordAuthEvent(ctx, "login", "success")
	return &LoginResult{SessionID: session.ID, AccessToken: token}, nil
}

// Logout revokes whatever the identity still holds. Once both the token
// and the session are gone, repeating the call reports
// ErrNotAuthenticated; that outcome is terminal, not an internal fault.
func (s *AuthService) Logout(ctx context.Context, identity domain.RequestIdentity) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	revoked := false
	if identity.AccessToken != "" {
		ok, err := s.tokens.Delete(ctx, identity.AccessToken)
		if err != nil {
			observability.RecordAuthEvent(ctx, "logout", "unavailable")
			return storeErr(err)
		}
		revoked = revoked || ok
	}
	if identity.SessionID != "" {
		ok, err := s.sessions.Delete(ctx, identity.SessionID)
		if err != nil {
			observability.RecordAuthEvent(ctx, "logout", "unavailable")
			return storeErr(err)
		}
		revoked = revoked || ok
	}
	if !revoked {
		observability.RecordAuthEvent(ctx, "logout", "noop")
		return ErrNotAuthenticated
	}
	observability.RecordAuthEvent(ctx, "logout", "success")
	return nil
}

// bound caps every store interaction so one stalled call never holds a
// request forever.
func (s *AuthService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
