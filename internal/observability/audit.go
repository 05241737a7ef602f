package observability

import (
	"log/slog"
	"net/http"
)

// Audit logs a security-relevant event (registration, login, logout,
// denied channel access) with enough request correlation to follow the
// trail later.
func Audit(r *http.Request, event string, attrs ...any) {
	args := make([]any, 0, len(attrs)+10)
	args = append(args,
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
		"request_id", r.Header.Get("X-Request-Id"),
	)
	args = append(args, attrs...)
	slog.InfoContext(r.Context(), "audit", args...)
}
