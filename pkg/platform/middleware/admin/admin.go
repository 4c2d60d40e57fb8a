package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"whaled/pkg/requestcontext"
)

// RequireAdminToken gates the watcher control endpoints behind a static
// X-Admin-Token header. Uses constant-time comparison to prevent timing
// attacks.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// An unset admin token closes the endpoints rather than opening them.
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				deny(w, r, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminTokenHash is the variant for deployments that keep only a
// bcrypt hash of the admin token in the environment.
func RequireAdminTokenHash(expectedHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(token)) != nil {
				deny(w, r, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin selects the gate for the configured credential form: the
// bcrypt hash gate when a hash is set, the constant-time comparison gate
// otherwise. Deployments that keep only a hash in the environment never
// hold the plaintext token.
func RequireAdmin(token, tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	if tokenHash != "" {
		return RequireAdminTokenHash(tokenHash, logger)
	}
	return RequireAdminToken(token, logger)
}

func deny(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ctx := r.Context()
	logger.WarnContext(ctx, "admin token mismatch",
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
}
