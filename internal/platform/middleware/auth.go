package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"veridoc/internal/platform/token"
	"veridoc/pkg/requestcontext"
)

// TokenValidator validates an operator access token.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and records the
// operator identity in the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - missing token",
						"request_id", requestcontext.RequestID(ctx))
				}
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestcontext.RequestID(ctx))
				}
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithOperatorID(ctx, claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
