package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/takutakahashi/pushnotify/pkg/auth"
)

// APIController is a controller mounted under /api
type APIController interface {
	GetName() string
	RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc)
}

// RateLimit bounds requests per client IP over a window. A zero Requests disables limiting.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// MainController manages all application routes and controllers
type MainController struct {
	healthController *HealthController
	apiControllers   []APIController
	tokens           *auth.TokenService
	rateLimit        RateLimit
}

// NewMainController creates a new main controller instance
func NewMainController(
	healthController *HealthController,
	tokens *auth.TokenService,
	rateLimit RateLimit,
	apiControllers ...APIController,
) *MainController {
	return &MainController{
		healthController: healthController,
		apiControllers:   apiControllers,
		tokens:           tokens,
		rateLimit:        rateLimit,
	}
}

// RegisterRoutes registers all application routes
func (mc *MainController) RegisterRoutes(e *echo.Echo) {
	mc.healthController.RegisterRoutes(e)

	api := e.Group("/api")
	if limiter := mc.rateLimiter(); limiter != nil {
		api.Use(limiter)
	}

	authMW := auth.AuthMiddleware(mc.tokens)
	for _, c := range mc.apiControllers {
		log.Printf("[ROUTES] Registering %s", c.GetName())
		c.RegisterRoutes(api, authMW)
	}
}

func (mc *MainController) rateLimiter() echo.MiddlewareFunc {
	if mc.rateLimit.Requests <= 0 || mc.rateLimit.Window <= 0 {
		return nil
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(mc.rateLimit.Requests) / mc.rateLimit.Window.Seconds()),
		Burst:     mc.rateLimit.Requests,
		ExpiresIn: mc.rateLimit.Window,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests from this IP, please try again later")
		},
	})
}
