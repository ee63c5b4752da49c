package busybee

import "context"

// RequestIDHeader is the HTTP header to carry a correlation ID.
// The instrumentation wrapper honors the value sent by the client
// and echoes the final ID back in the response.
const RequestIDHeader = "X-Request-Id"

type ctxKey int

const (
	// RequestIDContextKey is a context key for request correlation IDs.
	RequestIDContextKey ctxKey = iota
)

// WithRequestID returns a new context with a correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// RequestIDFromContext returns the correlation ID stored in ctx,
// or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return v
	}
	return ""
}
