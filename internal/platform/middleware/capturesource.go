package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"veridoc/pkg/requestcontext"
)

// CaptureSource classifies the client from its user agent. Compliance wants
// to know whether a document arrived from a desktop dashboard or a mobile
// capture app.
func CaptureSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())

		source := "desktop"
		switch {
		case ua.Bot():
			source = "bot"
		case ua.Mobile():
			source = "mobile"
		}

		ctx := requestcontext.WithCaptureSource(r.Context(), source)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
