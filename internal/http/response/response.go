package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"feedgate/internal/repository"
	"feedgate/internal/service"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
	Meta    meta        `json:"meta"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &apiError{Code: code, Message: message, Details: details}, Meta: buildMeta(r)})
}

// ServiceError maps the core error taxonomy onto the wire. Unexpected
// internal faults surface generically so no store detail leaks.
func ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		Error(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed request body", nil)
	case errors.Is(err, repository.ErrDuplicateLogin):
		Error(w, r, http.StatusConflict, "DUPLICATE_LOGIN", "login already taken", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
	case errors.Is(err, service.ErrNotAuthenticated):
		Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated", nil)
	case errors.Is(err, service.ErrForbidden):
		Error(w, r, http.StatusForbidden, "FORBIDDEN", "not the resource owner", nil)
	case errors.Is(err, repository.ErrFeedNotFound):
		Error(w, r, http.StatusNotFound, "NOT_FOUND", "feed not found", nil)
	case errors.Is(err, service.ErrUnavailable):
		Error(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "a backing store is unavailable, retry later", nil)
	default:
		Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func buildMeta(r *http.Request) meta {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: time.Now().UTC()}
}
