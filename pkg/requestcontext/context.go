// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them; keeping the
// package free of net/http lets services import only what they need.
package requestcontext

import (
	"context"
)

// Context key types (unexported for encapsulation).
type (
	operatorIDKey    struct{}
	requestIDKey     struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	captureSourceKey struct{}
)

// OperatorID retrieves the authenticated operator from the context.
func OperatorID(ctx context.Context) string {
	if operatorID, ok := ctx.Value(operatorIDKey{}).(string); ok {
		return operatorID
	}
	return ""
}

// WithOperatorID injects an operator identifier into the context.
func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorIDKey{}, operatorID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// CaptureSource retrieves the parsed browser/OS description of the capture
// client, recorded for audit trails.
func CaptureSource(ctx context.Context) string {
	if src, ok := ctx.Value(captureSourceKey{}).(string); ok {
		return src
	}
	return ""
}

// WithCaptureSource injects the capture-source description into a context.
func WithCaptureSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, captureSourceKey{}, source)
}
