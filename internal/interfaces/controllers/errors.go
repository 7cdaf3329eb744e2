package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	"github.com/takutakahashi/pushnotify/pkg/auth"
)

// toHTTPError maps a use case error onto the HTTP status the API reports
func toHTTPError(err error) error {
	var validation entities.ErrValidation
	var forbidden entities.ErrForbidden
	var notFound entities.ErrNotFound

	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, validation.Error())
	case errors.As(err, &forbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	case errors.Is(err, services.ErrLockHeld):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	log.Printf("[HTTP] Internal error: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

// requireUser returns the authenticated owner or a 401
func requireUser(c echo.Context) (*auth.UserContext, error) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return user, nil
}

// bindJSON decodes the request body or returns a 400
func bindJSON(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}
