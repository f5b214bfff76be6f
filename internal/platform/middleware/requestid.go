// Package middleware holds the HTTP middleware chain: request identity,
// operator authentication, client metadata, rate limiting and the admin gate.
package middleware

import (
	"net"
	"net/http"

	"github.com/google/uuid"

	"veridoc/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the context and echoes it in the
// response. An inbound header is trusted when present so gateway traces line
// up with ours.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), requestID)))
	})
}

// ClientMetadata records the caller's IP and user agent in the context for
// audit trails.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				ip = host
			} else {
				ip = r.RemoteAddr
			}
		}
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
