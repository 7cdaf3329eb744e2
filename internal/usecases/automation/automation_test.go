package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/repositories"
	infraservices "github.com/takutakahashi/pushnotify/internal/infrastructure/services"
	"github.com/takutakahashi/pushnotify/internal/testutils"
	"github.com/takutakahashi/pushnotify/internal/usecases/notification"
	"github.com/takutakahashi/pushnotify/internal/usecases/targeting"
)

type automationFixture struct {
	projects      *repositories.MemoryProjectRepository
	automations   *repositories.MemoryAutomationRepository
	notifications *repositories.MemoryNotificationRepository
	transport     *testutils.FakeTransport
	matcher       *MatchEventUseCase
	manage        *ManageAutomationUseCase
}

func newAutomationFixture(t *testing.T) *automationFixture {
	t.Helper()
	ctx := context.Background()
	subscribers := repositories.NewMemorySubscriberRepository()
	f := &automationFixture{
		projects:      repositories.NewMemoryProjectRepository(),
		automations:   repositories.NewMemoryAutomationRepository(),
		notifications: repositories.NewMemoryNotificationRepository(),
		transport:     testutils.NewFakeTransport(),
	}
	sender := notification.NewSendNotificationUseCase(
		f.notifications,
		f.projects,
		subscribers,
		targeting.NewResolveAudienceUseCase(subscribers),
		&testutils.FakeTransportFactory{Transport: f.transport},
		infraservices.NewMemoryDispatchLocker(),
		nil,
		notification.NewDispatcher(notification.DefaultDispatcherConfig()),
	)
	f.matcher = NewMatchEventUseCase(f.automations, f.notifications, sender)
	f.manage = NewManageAutomationUseCase(f.projects, f.automations, f.notifications)

	require.NoError(t, f.projects.Create(ctx, testutils.NewProject("p1", "owner")))
	require.NoError(t, subscribers.Save(ctx, testutils.NewSubscriber("chrome", "p1", entities.SubscriberProfile{Browser: "Chrome"})))
	require.NoError(t, subscribers.Save(ctx, testutils.NewSubscriber("firefox", "p1", entities.SubscriberProfile{Browser: "Firefox"})))

	n := entities.NewNotification("welcome", "p1", entities.NotificationContent{Title: "Welcome", Message: "Thanks for signing up"},
		entities.NotificationTypeTriggered, nil, entities.TargetAudience{}, entities.Recurring{}, entities.NotificationStatusDraft)
	require.NoError(t, f.notifications.Create(ctx, n))
	return f
}

func (f *automationFixture) addAutomation(t *testing.T, trigger entities.Trigger, action entities.Action, audience entities.TargetAudience) *entities.Automation {
	t.Helper()
	a, err := f.manage.Create(context.Background(), &CreateAutomationRequest{
		ProjectID: "p1",
		UserID:    "owner",
		Name:      "On signup",
		Trigger:   trigger,
		Action:    action,
		Audience:  audience,
	})
	require.NoError(t, err)
	return a
}

func signup(data map[string]interface{}) *entities.Event {
	return entities.NewEvent("e1", "p1", "", "signup", data, "https://shop.example.com/join", time.Now())
}

func TestOnEvent_CountsEveryFiring(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	a := f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(90 * time.Second)
	for _, at := range []time.Time{first, second} {
		at := at
		f.matcher.now = func() time.Time { return at }
		result, err := f.matcher.OnEvent(ctx, signup(nil))
		require.NoError(t, err)
		assert.Equal(t, MatchResult{Matched: 1, Dispatched: 1}, *result)
	}

	stored, err := f.automations.GetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TriggerCount())
	require.NotNil(t, stored.LastTriggered())
	assert.Equal(t, second, *stored.LastTriggered())
	assert.Len(t, f.transport.Sent(), 4)

	n, err := f.notifications.GetByID(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, 4, n.Counters().Sent)
}

func TestOnEvent_Conditions(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	f.addAutomation(t, entities.Trigger{
		Type:       entities.TriggerTypeEvent,
		EventName:  "signup",
		Conditions: entities.Values{"plan": entities.StringValue("pro"), "seats": entities.NumberValue(5)},
	}, entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})

	tests := []struct {
		name        string
		data        map[string]interface{}
		wantMatched int
	}{
		{"all conditions hold", map[string]interface{}{"plan": "pro", "seats": float64(5), "extra": true}, 1},
		{"one condition differs", map[string]interface{}{"plan": "free", "seats": float64(5)}, 0},
		{"same digits but wrong type", map[string]interface{}{"plan": "pro", "seats": "5"}, 0},
		{"condition key missing", map[string]interface{}{"plan": "pro"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.matcher.OnEvent(ctx, signup(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatched, result.Matched)
		})
	}
}

func TestOnEvent_IgnoresOtherEventsAndInactiveAutomations(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	a := f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})

	result, err := f.matcher.OnEvent(ctx, entities.NewEvent("e1", "p1", "", "purchase", nil, "", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)

	_, err = f.manage.SetActive(ctx, a.ID(), "owner", false)
	require.NoError(t, err)
	result, err = f.matcher.OnEvent(ctx, signup(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	assert.Empty(t, f.transport.Sent())
}

func TestOnEvent_AudienceOverride(t *testing.T) {
	f := newAutomationFixture(t)
	f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{Browsers: []string{"Firefox"}})

	_, err := f.matcher.OnEvent(context.Background(), signup(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{testutils.Endpoint("firefox")}, f.transport.Sent())
}

func TestOnEvent_DelayCreatesScheduledCopy(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.matcher.now = func() time.Time { return now }
	f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome", DelayMinutes: 30}, entities.TargetAudience{Browsers: []string{"Chrome"}})

	result, err := f.matcher.OnEvent(ctx, signup(nil))
	require.NoError(t, err)
	assert.Equal(t, MatchResult{Matched: 1, Deferred: 1}, *result)
	assert.Empty(t, f.transport.Sent())

	due, err := f.notifications.FindDue(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	delayed := due[0]
	assert.Equal(t, entities.NotificationTypeScheduled, delayed.Type())
	assert.Equal(t, "welcome", delayed.OriginalNotificationID())
	assert.Equal(t, []string{"Chrome"}, delayed.Audience().Browsers)
	assert.Equal(t, now.Add(30*time.Minute), *delayed.ScheduledFor())
}

func TestOnEvent_MissingNotificationStillCountsTrigger(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	a := f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})
	require.NoError(t, f.notifications.Delete(ctx, "welcome"))

	result, err := f.matcher.OnEvent(ctx, signup(nil))
	require.NoError(t, err)
	assert.Equal(t, MatchResult{Matched: 1}, *result)

	stored, err := f.automations.GetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TriggerCount())
}

func TestManageAutomation_Validation(t *testing.T) {
	f := newAutomationFixture(t)
	other := entities.NewNotification("foreign", "p2", entities.NotificationContent{Title: "t", Message: "m"},
		entities.NotificationTypeTriggered, nil, entities.TargetAudience{}, entities.Recurring{}, entities.NotificationStatusDraft)
	require.NoError(t, f.notifications.Create(context.Background(), other))

	event := entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"}
	tests := []struct {
		name string
		req  CreateAutomationRequest
	}{
		{"missing name", CreateAutomationRequest{Trigger: event, Action: entities.Action{NotificationID: "welcome"}}},
		{"unknown trigger", CreateAutomationRequest{Name: "a", Trigger: entities.Trigger{Type: "webhook"}, Action: entities.Action{NotificationID: "welcome"}}},
		{"event trigger without name", CreateAutomationRequest{Name: "a", Trigger: entities.Trigger{Type: entities.TriggerTypeEvent}, Action: entities.Action{NotificationID: "welcome"}}},
		{"negative delay", CreateAutomationRequest{Name: "a", Trigger: event, Action: entities.Action{NotificationID: "welcome", DelayMinutes: -1}}},
		{"unknown notification", CreateAutomationRequest{Name: "a", Trigger: event, Action: entities.Action{NotificationID: "nope"}}},
		{"notification of another project", CreateAutomationRequest{Name: "a", Trigger: event, Action: entities.Action{NotificationID: "foreign"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.ProjectID = "p1"
			req.UserID = "owner"
			_, err := f.manage.Create(context.Background(), &req)
			var validation entities.ErrValidation
			assert.True(t, errors.As(err, &validation), "got %v", err)
		})
	}
}

func TestManageAutomation_Ownership(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	a := f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})

	_, err := f.manage.Get(ctx, a.ID(), "intruder")
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	list, err := f.manage.List(ctx, "p1", "owner")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.manage.Delete(ctx, a.ID(), "owner"))
	_, err = f.manage.Get(ctx, a.ID(), "owner")
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestManageAutomation_Update(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	a := f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})
	_, err := f.matcher.OnEvent(ctx, signup(nil))
	require.NoError(t, err)

	name := " On purchase "
	updated, err := f.manage.Update(ctx, &UpdateAutomationRequest{
		AutomationID: a.ID(),
		UserID:       "owner",
		Name:         &name,
		Trigger:      &entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "purchase"},
		Audience:     &entities.TargetAudience{Browsers: []string{"Firefox"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "On purchase", updated.Name())
	assert.Equal(t, "purchase", updated.Trigger().EventName)
	assert.Equal(t, "welcome", updated.Action().NotificationID)
	assert.Equal(t, 1, updated.TriggerCount())
	assert.True(t, updated.IsActive())

	result, err := f.matcher.OnEvent(ctx, signup(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	result, err = f.matcher.OnEvent(ctx, entities.NewEvent("e2", "p1", "", "purchase", nil, "", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
}

func TestManageAutomation_UpdateRejected(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	a := f.addAutomation(t, entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "signup"},
		entities.Action{NotificationID: "welcome"}, entities.TargetAudience{})
	name := "Renamed"

	_, err := f.manage.Update(ctx, &UpdateAutomationRequest{AutomationID: a.ID(), UserID: "intruder", Name: &name})
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	_, err = f.manage.Update(ctx, &UpdateAutomationRequest{AutomationID: "missing", UserID: "owner", Name: &name})
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))

	var validation entities.ErrValidation
	_, err = f.manage.Update(ctx, &UpdateAutomationRequest{AutomationID: a.ID(), UserID: "owner", Action: &entities.Action{NotificationID: "nope"}})
	assert.True(t, errors.As(err, &validation))
	_, err = f.manage.Update(ctx, &UpdateAutomationRequest{AutomationID: a.ID(), UserID: "owner", Trigger: &entities.Trigger{Type: entities.TriggerTypeEvent}})
	assert.True(t, errors.As(err, &validation))

	stored, err := f.automations.GetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, "On signup", stored.Name())
}
