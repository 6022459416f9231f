package core

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// RequestIDKey is a custom context key type for storing the request ID in context.
type RequestIDKey struct{}

// SessionIDKey is a custom context key type for storing the browser session ID in context.
type SessionIDKey struct{}

// WithRequestID returns a new context with a generated request ID set.
func WithRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, uuid.New().String())
}

// RequestIDFromCtx returns the request ID stored in the context, or an empty string.
func RequestIDFromCtx(ctx context.Context) string {
	reqID, _ := ctx.Value(RequestIDKey{}).(string)
	return reqID
}

// WithSessionID returns a new context carrying the browser session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey{}, sessionID)
}

// SessionIDFromCtx returns the browser session ID stored in the context, or an empty string.
func SessionIDFromCtx(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDKey{}).(string)
	return sessionID
}

// LoggerFromCtx returns a slog.Logger with request_id and session_id fields
// when they are present in context. Otherwise it returns the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := RequestIDFromCtx(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if sessionID := SessionIDFromCtx(ctx); sessionID != "" {
		logger = logger.With("session_id", sessionID)
	}
	return logger
}
