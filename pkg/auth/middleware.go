package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// AuthTypeJWT marks callers authenticated with an owner token
	AuthTypeJWT = "jwt"

	// APIKeyHeader carries a project API key
	APIKeyHeader = "X-API-Key"

	userContextKey = "user"
)

// UserContext represents the authenticated owner
type UserContext struct {
	UserID   string
	Email    string
	AuthType string
}

// AuthMiddleware rejects requests without a valid bearer token
func AuthMiddleware(tokens *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			token := extractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			user, err := tokens.ValidateToken(token)
			if err != nil {
				log.Printf("[AUTH] Token rejected from %s: %v", c.RealIP(), err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// GetUserFromContext returns the authenticated owner, or nil on public routes
func GetUserFromContext(c echo.Context) *UserContext {
	if user, ok := c.Get(userContextKey).(*UserContext); ok {
		return user
	}
	return nil
}

// ExtractAPIKey returns the project API key sent with the request
func ExtractAPIKey(c echo.Context) string {
	if key := c.Request().Header.Get(APIKeyHeader); key != "" {
		return key
	}
	return c.QueryParam("apiKey")
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
