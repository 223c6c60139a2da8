package infrastructure

import "context"

type ctxKey int

const (
	traceIDKey ctxKey = iota
	sessionIDKey
)

// WithTraceID returns ctx carrying the request's trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id stored by WithTraceID, or "".
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

// WithSessionID returns ctx carrying the id of the dataset session being
// worked on. Log records written with it get a session_id attribute.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID returns the session id stored by WithSessionID, or "".
func GetSessionID(ctx context.Context) string {
	return stringValue(ctx, sessionIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
