package controllers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/usecases/notification"
)

// Tracking events reported by the service worker
const (
	TrackEventClick     = "click"
	TrackEventDelivered = "delivered"
	TrackEventClose     = "close"
)

// WebhookController receives notification interaction callbacks from service workers
type WebhookController struct {
	manage *notification.ManageNotificationUseCase
}

// NewWebhookController creates a new webhook controller
func NewWebhookController(manage *notification.ManageNotificationUseCase) *WebhookController {
	return &WebhookController{manage: manage}
}

// GetName returns the name of this controller for logging
func (c *WebhookController) GetName() string {
	return "WebhookController"
}

// RegisterRoutes registers webhook routes on the API group
func (c *WebhookController) RegisterRoutes(api *echo.Group, _ echo.MiddlewareFunc) {
	api.POST("/webhook/track", c.Track)
}

// TrackBody is the JSON body for POST /webhook/track
type TrackBody struct {
	NotificationID string `json:"notificationId"`
	Event          string `json:"event"`
	SubscriberID   string `json:"subscriberId,omitempty"`
}

// Track handles POST /webhook/track. Only clicks change counters; delivery is
// already counted when the push service accepts the message.
func (c *WebhookController) Track(ctx echo.Context) error {
	var body TrackBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}
	if body.NotificationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "notificationId is required")
	}

	switch body.Event {
	case TrackEventClick:
		if err := c.manage.RecordClick(ctx.Request().Context(), body.NotificationID); err != nil {
			return toHTTPError(err)
		}
	case TrackEventDelivered, TrackEventClose:
	default:
		log.Printf("[WEBHOOK] Ignoring unknown tracking event %q for notification %s", body.Event, body.NotificationID)
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}
