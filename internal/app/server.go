package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/takutakahashi/pushnotify/internal/di"
	"github.com/takutakahashi/pushnotify/pkg/metrics"
)

// Server represents the HTTP server
type Server struct {
	echo      *echo.Echo
	container *di.Container
	verbose   bool
}

// NewServer creates a new server instance serving the container's routes
func NewServer(container *di.Container, verbose bool) *Server {
	e := echo.New()
	e.HideBanner = true

	// Disable Echo's default logger and use custom logging
	e.Logger.SetOutput(io.Discard)

	// Add recovery middleware
	e.Use(middleware.Recover())

	// Add security headers middleware
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000, // 1 year
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// Public routes are called from customer sites. ALLOWED_ORIGINS narrows the origins.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: allowOrigin(os.Getenv("ALLOWED_ORIGINS")),
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Requested-With", "X-API-Key"},
		MaxAge:          86400,
	}))

	s := &Server{
		echo:      e,
		container: container,
		verbose:   verbose,
	}

	if verbose {
		e.Use(middleware.Logger())
	} else {
		e.Use(s.loggingMiddleware())
	}

	metrics.Init()
	container.MainController.RegisterRoutes(e)

	return s
}

// loggingMiddleware logs failed requests only
func (s *Server) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				req := c.Request()
				log.Printf("[HTTP] %s %s from %s: %v", req.Method, req.URL.Path, c.RealIP(), err)
			}
			return err
		}
	}
}

func allowOrigin(allowedOrigins string) func(origin string) (bool, error) {
	if strings.TrimSpace(allowedOrigins) == "" {
		return func(string) (bool, error) { return true, nil }
	}
	origins := make(map[string]struct{})
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}
	return func(origin string) (bool, error) {
		_, ok := origins[origin]
		return ok, nil
	}
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	log.Printf("[SERVER] Listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// GetEcho returns the underlying echo instance
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// GetContainer returns the dependency container
func (s *Server) GetContainer() *di.Container {
	return s.container
}
