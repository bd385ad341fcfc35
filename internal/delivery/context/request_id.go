package context

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
)

// ContextKey names values the delivery layer stores in echo.Context.
type ContextKey string

const (
	// KeyRequestID holds the request ID in echo.Context.
	KeyRequestID ContextKey = "request_id"

	// HeaderXRequestID is read from requests and echoed on responses.
	HeaderXRequestID = "X-Request-Id"
)

type requestScopeKey struct{}

// requestScope travels in the request context so usecases and repositories
// log with the same request ID the client sees.
type requestScope struct {
	id     string
	logger *slog.Logger
}

// WithRequestScope attaches the request ID and its logger to ctx.
func WithRequestScope(ctx context.Context, requestID string, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, requestScopeKey{}, requestScope{id: requestID, logger: logger})
}

// RequestIDFromContext returns the ID attached by WithRequestScope, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	scope, _ := ctx.Value(requestScopeKey{}).(requestScope)

	return scope.id
}

// LoggerFromContext returns the request logger, or fallback outside a request.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if scope, ok := ctx.Value(requestScopeKey{}).(requestScope); ok && scope.logger != nil {
		return scope.logger
	}

	return fallback
}

// SetRequestID stores the request ID in echo.Context.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

// RequestID returns the ID stored in echo.Context, falling back to the request context.
func RequestID(c echo.Context) string {
	if id, ok := c.Get(string(KeyRequestID)).(string); ok && id != "" {
		return id
	}

	return RequestIDFromContext(c.Request().Context())
}
