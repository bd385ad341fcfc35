package context

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequestScope(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	scoped := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("outside a request", func(t *testing.T) {
		ctx := context.Background()

		assert.Empty(t, RequestIDFromContext(ctx))
		assert.Same(t, fallback, LoggerFromContext(ctx, fallback))
	})

	t.Run("inside a request", func(t *testing.T) {
		ctx := WithRequestScope(context.Background(), "req-1", scoped)

		assert.Equal(t, "req-1", RequestIDFromContext(ctx))
		assert.Same(t, scoped, LoggerFromContext(ctx, fallback))
	})

	t.Run("nil logger falls back", func(t *testing.T) {
		ctx := WithRequestScope(context.Background(), "req-1", nil)

		assert.Same(t, fallback, LoggerFromContext(ctx, fallback))
	})
}

func TestRequestID(t *testing.T) {
	e := echo.New()

	t.Run("prefers echo.Context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRequestScope(req.Context(), "from-ctx", nil))
		c := e.NewContext(req, httptest.NewRecorder())
		SetRequestID(c, "from-echo")

		assert.Equal(t, "from-echo", RequestID(c))
	})

	t.Run("falls back to request context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRequestScope(req.Context(), "from-ctx", nil))
		c := e.NewContext(req, httptest.NewRecorder())

		assert.Equal(t, "from-ctx", RequestID(c))
	})

	t.Run("unset", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

		assert.Empty(t, RequestID(c))
	})
}
