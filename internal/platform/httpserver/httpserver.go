// Package httpserver builds the process's HTTP server with the timeouts the
// capture surface needs: header reads stay short, but bodies may be slow
// multi-megabyte document uploads, so no blanket read deadline is set.
package httpserver

import (
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// Option adjusts the server before it is returned.
type Option func(*http.Server)

// WithReadHeaderTimeout overrides the request header read deadline.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(srv *http.Server) {
		srv.ReadHeaderTimeout = d
	}
}

// WithIdleTimeout overrides the keep-alive idle deadline.
func WithIdleTimeout(d time.Duration) Option {
	return func(srv *http.Server) {
		srv.IdleTimeout = d
	}
}

// New builds the HTTP server.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
