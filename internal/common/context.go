package common

import "context"

type contextKey string

const ContextKeyRequestID contextKey = "request_id"

// WithRequestID tags ctx with the id of the HTTP request or queued job it serves.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext returns "" when ctx carries no request id.
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}
