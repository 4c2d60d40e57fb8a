package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"whaled/internal/minttoken"
	"whaled/pkg/requestcontext"
)

// TokenValidator validates bearer tokens on the mint endpoint.
type TokenValidator interface {
	ValidateToken(tokenString string) (*minttoken.Claims, error)
}

// writeJSONError writes a JSON error response with the given status and code.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}

// RequireMinter gates an endpoint behind a bearer token carrying the mint
// scope. The authenticated subject lands in the request context for audit
// attribution.
func RequireMinter(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "mint denied, missing bearer token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "mint denied, invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			if !claims.HasScope(minttoken.ScopeMint) {
				logger.WarnContext(ctx, "mint denied, missing mint scope",
					"subject", claims.Subject,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "mint scope required")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithMinter(ctx, claims.Subject)))
		})
	}
}
