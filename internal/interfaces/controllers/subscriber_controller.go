package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/subscriber"
)

// SubscriberController handles subscription and subscriber management HTTP requests
type SubscriberController struct {
	subscribe   *subscriber.SubscribeUseCase
	unsubscribe *subscriber.UnsubscribeUseCase
	manage      *subscriber.ManageSubscribersUseCase
}

// NewSubscriberController creates a new SubscriberController
func NewSubscriberController(subscribe *subscriber.SubscribeUseCase, unsubscribe *subscriber.UnsubscribeUseCase, manage *subscriber.ManageSubscribersUseCase) *SubscriberController {
	return &SubscriberController{subscribe: subscribe, unsubscribe: unsubscribe, manage: manage}
}

// GetName returns the name of this controller for logging
func (c *SubscriberController) GetName() string {
	return "SubscriberController"
}

// RegisterRoutes registers subscriber routes on the API group
func (c *SubscriberController) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	// Called by the browser SDK, no owner token
	api.POST("/subscribers/subscribe", c.Subscribe)
	api.POST("/subscribers/unsubscribe", c.Unsubscribe)

	api.GET("/subscribers/project/:projectId", c.ListSubscribers, authMW)
	api.GET("/subscribers/stats/:projectId", c.GetStats, authMW)
	api.POST("/subscribers/import/:projectId", c.ImportSubscribers, authMW)
}

// PushSubscriptionBody is the browser's PushSubscription JSON
type PushSubscriptionBody struct {
	Endpoint string            `json:"endpoint"`
	Keys     entities.PushKeys `json:"keys"`
}

// SubscribeBody is the JSON body for POST /subscribers/subscribe
type SubscribeBody struct {
	ProjectID    string               `json:"projectId"`
	Subscription PushSubscriptionBody `json:"subscription"`
	UserAgent    string               `json:"userAgent,omitempty"`
	Browser      string               `json:"browser,omitempty"`
	OS           string               `json:"os,omitempty"`
	Device       string               `json:"device,omitempty"`
	Country      string               `json:"country,omitempty"`
	State        string               `json:"state,omitempty"`
	City         string               `json:"city,omitempty"`
	Timezone     string               `json:"timezone,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	Attributes   entities.Values      `json:"attributes,omitempty"`
}

// UnsubscribeBody is the JSON body for POST /subscribers/unsubscribe
type UnsubscribeBody struct {
	Endpoint string `json:"endpoint"`
}

// ImportRow is one subscriber in a bulk import
type ImportRow struct {
	Endpoint   string            `json:"endpoint"`
	Keys       entities.PushKeys `json:"keys"`
	UserAgent  string            `json:"userAgent,omitempty"`
	Browser    string            `json:"browser,omitempty"`
	OS         string            `json:"os,omitempty"`
	Country    string            `json:"country,omitempty"`
	Timezone   string            `json:"timezone,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Attributes entities.Values   `json:"attributes,omitempty"`
}

// ImportBody is the JSON body for POST /subscribers/import/:projectId
type ImportBody struct {
	Subscribers []ImportRow `json:"subscribers"`
}

// Subscribe handles POST /subscribers/subscribe
func (c *SubscriberController) Subscribe(ctx echo.Context) error {
	var body SubscribeBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}
	userAgent := body.UserAgent
	if userAgent == "" {
		userAgent = ctx.Request().UserAgent()
	}

	resp, err := c.subscribe.Execute(ctx.Request().Context(), &subscriber.SubscribeRequest{
		ProjectID: body.ProjectID,
		Endpoint:  body.Subscription.Endpoint,
		Keys:      body.Subscription.Keys,
		Profile: entities.SubscriberProfile{
			UserAgent: userAgent,
			Browser:   body.Browser,
			OS:        body.OS,
			Device:    body.Device,
			Country:   body.Country,
			State:     body.State,
			City:      body.City,
			Timezone:  body.Timezone,
		},
		Tags:       body.Tags,
		Attributes: body.Attributes,
	})
	if err != nil {
		return toHTTPError(err)
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	return ctx.JSON(status, map[string]interface{}{
		"success":      true,
		"subscriberId": resp.Subscriber.ID(),
	})
}

// Unsubscribe handles POST /subscribers/unsubscribe. Unknown endpoints succeed.
func (c *SubscriberController) Unsubscribe(ctx echo.Context) error {
	var body UnsubscribeBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}
	if err := c.unsubscribe.Execute(ctx.Request().Context(), body.Endpoint); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}

// ListSubscribers handles GET /subscribers/project/:projectId
func (c *SubscriberController) ListSubscribers(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}

	req := &subscriber.ListSubscribersRequest{
		ProjectID: ctx.Param("projectId"),
		UserID:    user.UserID,
	}
	if v := ctx.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
		}
		req.Active = &active
	}
	if req.Limit, err = intQueryParam(ctx, "limit"); err != nil {
		return err
	}
	if req.Offset, err = intQueryParam(ctx, "offset"); err != nil {
		return err
	}

	subs, err := c.manage.List(ctx.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]*SubscriberResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriberResponse(s))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetStats handles GET /subscribers/stats/:projectId
func (c *SubscriberController) GetStats(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	stats, err := c.manage.Stats(ctx.Request().Context(), ctx.Param("projectId"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, stats)
}

// ImportSubscribers handles POST /subscribers/import/:projectId
func (c *SubscriberController) ImportSubscribers(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body ImportBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}
	if body.Subscribers == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "subscribers must be an array")
	}

	projectID := ctx.Param("projectId")
	rows := make([]subscriber.SubscribeRequest, 0, len(body.Subscribers))
	for _, r := range body.Subscribers {
		rows = append(rows, subscriber.SubscribeRequest{
			ProjectID: projectID,
			Endpoint:  r.Endpoint,
			Keys:      r.Keys,
			Profile: entities.SubscriberProfile{
				UserAgent: r.UserAgent,
				Browser:   r.Browser,
				OS:        r.OS,
				Country:   r.Country,
				Timezone:  r.Timezone,
			},
			Tags:       r.Tags,
			Attributes: r.Attributes,
		})
	}

	result, err := c.manage.Import(ctx.Request().Context(), projectID, user.UserID, rows)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, result)
}

func intQueryParam(ctx echo.Context, name string) (int, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
