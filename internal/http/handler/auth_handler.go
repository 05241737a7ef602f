package handler

import (
	"net/http"

	"feedgate/internal/http/middleware"
	"feedgate/internal/http/response"
	"feedgate/internal/observability"
	"feedgate/internal/security"
	"feedgate/internal/service"
)

type AuthHandler struct {
	auth    *service.AuthService
	cookies *security.SessionCookies
}

func NewAuthHandler(auth *service.AuthService, cookies *security.SessionCookies) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed request body", nil)
		return
	}
	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	observability.Audit(r, "user.registered", "login", user.Login)
	response.JSON(w, r, http.StatusCreated, user)
}

// Login issues the session cookie and returns the access token for
// bearer API calls; the session already references that token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		response.Error(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed request body", nil)
		return
	}
	result, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		response.ServiceError(w, r, err)
		return
	}
	if err := h.cookies.Write(w, r, result.SessionID); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	observability.Audit(r, "user.login", "login", creds.Login)
	response.JSON(w, r, http.StatusOK, map[string]string{"accessToken": result.AccessToken})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), identity); err != nil {
		response.ServiceError(w, r, err)
		return
	}
	_ = h.cookies.Clear(w, r)
	observability.Audit(r, "user.logout", "login", identity.Login)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}
