package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/di"
	"github.com/takutakahashi/pushnotify/pkg/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	container, err := di.NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return NewServer(container, false)
}

func TestServerHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.GetEcho().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServerCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/events/track", nil)
	req.Header.Set(echo.HeaderOrigin, "https://shop.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "X-API-Key")
	rec := httptest.NewRecorder()
	s.GetEcho().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "X-API-Key")
}

func TestAllowOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    bool
	}{
		{"unset allows any origin", "", "https://a.example.com", true},
		{"listed origin", "https://a.example.com, https://b.example.com", "https://b.example.com", true},
		{"unlisted origin", "https://a.example.com", "https://evil.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := allowOrigin(tt.allowed)(tt.origin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
