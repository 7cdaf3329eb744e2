package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/automation"
	"github.com/takutakahashi/pushnotify/internal/usecases/event"
	portrepos "github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/pkg/auth"
)

// EventController handles event ingestion and listing HTTP requests
type EventController struct {
	track *event.TrackEventUseCase
	list  *event.ListEventsUseCase
}

// NewEventController creates a new EventController
func NewEventController(track *event.TrackEventUseCase, list *event.ListEventsUseCase) *EventController {
	return &EventController{track: track, list: list}
}

// GetName returns the name of this controller for logging
func (c *EventController) GetName() string {
	return "EventController"
}

// RegisterRoutes registers event routes on the API group
func (c *EventController) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	api.POST("/events/track", c.TrackEvent)
	api.GET("/events/project/:projectId", c.ListEvents, authMW)
}

// TrackEventBody is the JSON body for POST /events/track
type TrackEventBody struct {
	EventName    string                 `json:"eventName"`
	EventData    map[string]interface{} `json:"eventData,omitempty"`
	Timestamp    *time.Time             `json:"timestamp,omitempty"`
	URL          string                 `json:"url,omitempty"`
	SubscriberID string                 `json:"subscriberId,omitempty"`
}

// TrackEventResponse reports the stored event and what it fired
type TrackEventResponse struct {
	Success     bool                    `json:"success"`
	EventID     string                  `json:"eventId"`
	Automations *automation.MatchResult `json:"automations"`
}

// TrackEvent handles POST /events/track. The project is identified by its API key
// and the page URL defaults to the Referer header.
func (c *EventController) TrackEvent(ctx echo.Context) error {
	key := auth.ExtractAPIKey(ctx)
	if key == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "API key required")
	}
	var body TrackEventBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}
	url := body.URL
	if url == "" {
		url = ctx.Request().Referer()
	}

	resp, err := c.track.Execute(ctx.Request().Context(), &event.TrackEventRequest{
		APIKey:       key,
		Name:         body.EventName,
		Data:         body.EventData,
		Timestamp:    body.Timestamp,
		URL:          url,
		SubscriberID: body.SubscriberID,
	})
	if err != nil {
		var notFound entities.ErrNotFound
		if errors.As(err, &notFound) && notFound.Kind == entities.KindProject {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid API key")
		}
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, &TrackEventResponse{
		Success:     true,
		EventID:     resp.Event.ID(),
		Automations: resp.Match,
	})
}

// ListEvents handles GET /events/project/:projectId?eventName=&startDate=&endDate=&limit=
func (c *EventController) ListEvents(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	filter := portrepos.EventFilter{
		ProjectID: ctx.Param("projectId"),
		EventName: ctx.QueryParam("eventName"),
	}
	if filter.Start, err = timeQueryParam(ctx, "startDate"); err != nil {
		return err
	}
	if filter.End, err = timeQueryParam(ctx, "endDate"); err != nil {
		return err
	}
	if filter.Limit, err = intQueryParam(ctx, "limit"); err != nil {
		return err
	}

	events, err := c.list.Execute(ctx.Request().Context(), user.UserID, filter)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return ctx.JSON(http.StatusOK, out)
}

// timeQueryParam accepts RFC 3339 timestamps or plain dates
func timeQueryParam(ctx echo.Context, name string) (*time.Time, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a date")
}
