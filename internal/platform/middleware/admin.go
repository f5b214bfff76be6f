package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const adminKeyHeader = "X-Admin-Key"

// RequireAdmin gates administrative routes behind a pre-shared key, compared
// against its bcrypt hash. An empty hash disables the surface entirely.
func RequireAdmin(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				http.NotFound(w, r)
				return
			}
			key := r.Header.Get(adminKeyHeader)
			if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Invalid admin key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
