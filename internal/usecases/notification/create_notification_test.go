package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

func newCreateUseCase(f *sendFixture, now time.Time) *CreateNotificationUseCase {
	uc := NewCreateNotificationUseCase(f.projects, f.notifications, f.useCase)
	uc.now = func() time.Time { return now }
	return uc
}

func TestCreateNotification(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	content := entities.NotificationContent{Title: "Sale", Message: "50% off"}
	future := now.Add(2 * time.Hour)
	past := now.Add(-30 * time.Hour)

	tests := []struct {
		name       string
		req        CreateNotificationRequest
		wantType   entities.NotificationType
		wantStatus entities.NotificationStatus
		wantSent   bool
		wantNext   *time.Time
	}{
		{
			name:       "no type and no recurrence sends immediately",
			req:        CreateNotificationRequest{Content: content},
			wantType:   entities.NotificationTypeInstant,
			wantStatus: entities.NotificationStatusSent,
			wantSent:   true,
		},
		{
			name:       "scheduled waits for the scheduler",
			req:        CreateNotificationRequest{Content: content, Type: entities.NotificationTypeScheduled, ScheduledFor: &future},
			wantType:   entities.NotificationTypeScheduled,
			wantStatus: entities.NotificationStatusScheduled,
		},
		{
			name:       "triggered stays a draft",
			req:        CreateNotificationRequest{Content: content, Type: entities.NotificationTypeTriggered},
			wantType:   entities.NotificationTypeTriggered,
			wantStatus: entities.NotificationStatusDraft,
		},
		{
			name: "enabled recurrence implies recurring with a future first send",
			req: CreateNotificationRequest{Content: content, ScheduledFor: &future,
				Recurring: entities.Recurring{Enabled: true, Frequency: entities.FrequencyDaily, Interval: 1}},
			wantType:   entities.NotificationTypeRecurring,
			wantStatus: entities.NotificationStatusScheduled,
			wantNext:   &future,
		},
		{
			name: "past start is stepped forward to the first occurrence after now",
			req: CreateNotificationRequest{Content: content, Type: entities.NotificationTypeRecurring, ScheduledFor: &past,
				Recurring: entities.Recurring{Enabled: true, Frequency: entities.FrequencyDaily, Interval: 1}},
			wantType:   entities.NotificationTypeRecurring,
			wantStatus: entities.NotificationStatusScheduled,
			wantNext:   timePtr(past.AddDate(0, 0, 2)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSendFixture(t)
			f.addSubscriber(t, "s1", "Chrome", "US")
			req := tt.req
			req.ProjectID = "p1"
			req.UserID = "owner"

			resp, err := newCreateUseCase(f, now).Execute(context.Background(), &req)
			require.NoError(t, err)

			n := resp.Notification
			assert.Equal(t, tt.wantType, n.Type())
			assert.Equal(t, tt.wantStatus, n.Status())
			assert.Equal(t, tt.wantSent, resp.Result != nil)
			if tt.wantSent {
				assert.Equal(t, 1, n.Counters().Delivered)
			} else {
				assert.Empty(t, f.transport.Sent())
			}
			if tt.wantNext != nil {
				require.NotNil(t, n.Recurring().NextSendDate)
				assert.Equal(t, *tt.wantNext, *n.Recurring().NextSendDate)
			}
		})
	}
}

func TestCreateNotification_Validation(t *testing.T) {
	content := entities.NotificationContent{Title: "Sale", Message: "50% off"}
	tests := []struct {
		name string
		req  CreateNotificationRequest
	}{
		{"missing title", CreateNotificationRequest{Content: entities.NotificationContent{Message: "m"}}},
		{"missing message", CreateNotificationRequest{Content: entities.NotificationContent{Title: "t"}}},
		{"unknown type", CreateNotificationRequest{Content: content, Type: "broadcast"}},
		{"scheduled without time", CreateNotificationRequest{Content: content, Type: entities.NotificationTypeScheduled}},
		{"recurring without enabled", CreateNotificationRequest{Content: content, Type: entities.NotificationTypeRecurring,
			Recurring: entities.Recurring{Frequency: entities.FrequencyDaily}}},
		{"recurring with unknown frequency", CreateNotificationRequest{Content: content,
			Recurring: entities.Recurring{Enabled: true, Frequency: "hourly"}}},
		{"recurrence on an instant notification", CreateNotificationRequest{Content: content, Type: entities.NotificationTypeInstant,
			Recurring: entities.Recurring{Enabled: true, Frequency: entities.FrequencyDaily}}},
		{"button without title", CreateNotificationRequest{Content: entities.NotificationContent{Title: "t", Message: "m",
			Buttons: []entities.Button{{Action: "open"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSendFixture(t)
			req := tt.req
			req.ProjectID = "p1"
			req.UserID = "owner"

			_, err := newCreateUseCase(f, time.Now()).Execute(context.Background(), &req)
			var validation entities.ErrValidation
			assert.True(t, errors.As(err, &validation), "got %v", err)
		})
	}
}

func TestCreateNotification_Ownership(t *testing.T) {
	f := newSendFixture(t)
	uc := newCreateUseCase(f, time.Now())
	content := entities.NotificationContent{Title: "t", Message: "m"}

	_, err := uc.Execute(context.Background(), &CreateNotificationRequest{ProjectID: "p1", UserID: "intruder", Content: content})
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	_, err = uc.Execute(context.Background(), &CreateNotificationRequest{ProjectID: "missing", UserID: "owner", Content: content})
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestManageNotification(t *testing.T) {
	f := newSendFixture(t)
	ctx := context.Background()
	f.addSubscriber(t, "s1", "Chrome", "US")
	f.addNotification(t, "n1", entities.TargetAudience{})
	uc := NewManageNotificationUseCase(f.projects, f.notifications, f.useCase)

	list, err := uc.List(ctx, "p1", "owner")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = uc.Get(ctx, "n1", "intruder")
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	output, err := uc.Send(ctx, "n1", "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, output.Result.Delivered)

	require.NoError(t, uc.RecordClick(ctx, "n1"))
	require.NoError(t, uc.RecordClick(ctx, "n1"))
	n, err := uc.Get(ctx, "n1", "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, n.Counters().Clicked)

	require.NoError(t, uc.Delete(ctx, "n1", "owner"))
	_, err = uc.Get(ctx, "n1", "owner")
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
}

func timePtr(t time.Time) *time.Time { return &t }
