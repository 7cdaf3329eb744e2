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

func newManageUseCase(f *sendFixture, now time.Time) *ManageNotificationUseCase {
	uc := NewManageNotificationUseCase(f.projects, f.notifications, f.useCase)
	uc.now = func() time.Time { return now }
	return uc
}

func strPtr(s string) *string { return &s }

func TestUpdateNotification_ContentKeepsCounters(t *testing.T) {
	f := newSendFixture(t)
	ctx := context.Background()
	f.addSubscriber(t, "s1", "Chrome", "US")
	f.addNotification(t, "n1", entities.TargetAudience{})
	uc := newManageUseCase(f, time.Now())

	_, err := uc.Send(ctx, "n1", "owner")
	require.NoError(t, err)

	n, err := uc.Update(ctx, &UpdateNotificationRequest{
		NotificationID: "n1",
		UserID:         "owner",
		Content:        ContentPatch{Title: strPtr("  Flash sale ")},
		Audience:       &entities.TargetAudience{Countries: []string{"JP"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Flash sale", n.Content().Title)
	assert.Equal(t, "50% off", n.Content().Message)
	assert.Equal(t, []string{"JP"}, n.Audience().Countries)
	assert.Equal(t, 1, n.Counters().Sent)
	assert.Equal(t, entities.NotificationStatusSent, n.Status())

	stored, err := f.notifications.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Flash sale", stored.Content().Title)
}

func TestUpdateNotification_RecurringReschedule(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(2 * time.Hour)
	f := newSendFixture(t)
	ctx := context.Background()

	created, err := newCreateUseCase(f, now).Execute(ctx, &CreateNotificationRequest{
		ProjectID:    "p1",
		UserID:       "owner",
		Content:      entities.NotificationContent{Title: "Digest", Message: "This week"},
		ScheduledFor: &future,
		Recurring:    entities.Recurring{Enabled: true, Frequency: entities.FrequencyDaily},
	})
	require.NoError(t, err)
	id := created.Notification.ID()
	uc := newManageUseCase(f, now)

	n, err := uc.Update(ctx, &UpdateNotificationRequest{NotificationID: id, UserID: "owner", Content: ContentPatch{Message: strPtr("Top stories")}})
	require.NoError(t, err)
	assert.Equal(t, future, *n.Recurring().NextSendDate, "content edits keep the next send date")

	past := now.Add(-30 * time.Hour)
	n, err = uc.Update(ctx, &UpdateNotificationRequest{NotificationID: id, UserID: "owner", ScheduledFor: &past})
	require.NoError(t, err)
	assert.Equal(t, past.AddDate(0, 0, 2), *n.Recurring().NextSendDate)

	n, err = uc.Update(ctx, &UpdateNotificationRequest{
		NotificationID: id,
		UserID:         "owner",
		Recurring:      &entities.Recurring{Enabled: true, Frequency: entities.FrequencyWeekly},
	})
	require.NoError(t, err)
	assert.Equal(t, past.AddDate(0, 0, 7), *n.Recurring().NextSendDate)
	assert.Equal(t, entities.NotificationStatusScheduled, n.Status())
	assert.Equal(t, entities.FrequencyWeekly, n.Recurring().Frequency)
}

func TestUpdateNotification_Rejected(t *testing.T) {
	f := newSendFixture(t)
	ctx := context.Background()
	f.addNotification(t, "n1", entities.TargetAudience{})
	uc := newManageUseCase(f, time.Now())

	_, err := uc.Update(ctx, &UpdateNotificationRequest{NotificationID: "n1", UserID: "intruder", Content: ContentPatch{Title: strPtr("x")}})
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	_, err = uc.Update(ctx, &UpdateNotificationRequest{NotificationID: "missing", UserID: "owner"})
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))

	var validation entities.ErrValidation
	_, err = uc.Update(ctx, &UpdateNotificationRequest{NotificationID: "n1", UserID: "owner", Content: ContentPatch{Title: strPtr(" ")}})
	assert.True(t, errors.As(err, &validation))

	_, err = uc.Update(ctx, &UpdateNotificationRequest{
		NotificationID: "n1",
		UserID:         "owner",
		Recurring:      &entities.Recurring{Enabled: true, Frequency: entities.FrequencyDaily},
	})
	assert.True(t, errors.As(err, &validation), "instant notifications cannot recur")

	_, err = f.notifications.Mutate(ctx, "n1", func(n *entities.Notification) error {
		n.MarkSending()
		return nil
	})
	require.NoError(t, err)
	_, err = uc.Update(ctx, &UpdateNotificationRequest{NotificationID: "n1", UserID: "owner", Content: ContentPatch{Title: strPtr("x")}})
	assert.True(t, errors.As(err, &validation))

	stored, err := f.notifications.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Sale", stored.Content().Title)
}
