package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

func newTestSubscriber(id, projectID, browser, country string, tags ...string) *entities.Subscriber {
	return entities.NewSubscriber(
		id,
		projectID,
		"https://push.example.com/"+id,
		entities.PushKeys{P256dh: "p256dh-" + id, Auth: "auth-" + id},
		entities.SubscriberProfile{Browser: browser, Country: country},
		tags,
		entities.Values{},
	)
}

func TestMemorySubscriberRepository_SaveReplacesByEndpoint(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestSubscriber("s1", "p1", "Chrome", "US")))

	replacement := entities.NewSubscriber("s2", "p1", "https://push.example.com/s1",
		entities.PushKeys{P256dh: "k", Auth: "a"}, entities.SubscriberProfile{Browser: "Firefox"}, nil, nil)
	require.NoError(t, repo.Save(ctx, replacement))

	got, err := repo.GetByEndpoint(ctx, "https://push.example.com/s1")
	require.NoError(t, err)
	assert.Equal(t, "s2", got.ID())

	_, err = repo.GetByID(ctx, "s1")
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestMemorySubscriberRepository_FindByAudience(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestSubscriber("chrome-us", "p1", "Chrome", "US", "vip")))
	require.NoError(t, repo.Save(ctx, newTestSubscriber("chrome-jp", "p1", "Chrome", "JP")))
	require.NoError(t, repo.Save(ctx, newTestSubscriber("firefox-us", "p1", "Firefox", "US", "vip")))
	require.NoError(t, repo.Save(ctx, newTestSubscriber("other-project", "p2", "Chrome", "US", "vip")))
	inactive := newTestSubscriber("inactive", "p1", "Chrome", "US", "vip")
	inactive.Deactivate()
	require.NoError(t, repo.Save(ctx, inactive))

	t.Run("empty audience selects all active subscribers of the project", func(t *testing.T) {
		subs, err := repo.FindByAudience(ctx, "p1", entities.TargetAudience{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"chrome-us", "chrome-jp", "firefox-us"}, subscriberIDs(subs))
	})

	t.Run("dimensions are combined", func(t *testing.T) {
		subs, err := repo.FindByAudience(ctx, "p1", entities.TargetAudience{
			Browsers:  []string{"Chrome"},
			Countries: []string{"US"},
			Tags:      []string{"vip"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"chrome-us"}, subscriberIDs(subs))
	})

	t.Run("no match returns an empty slice", func(t *testing.T) {
		subs, err := repo.FindByAudience(ctx, "p1", entities.TargetAudience{Countries: []string{"FR"}})
		require.NoError(t, err)
		assert.NotNil(t, subs)
		assert.Empty(t, subs)
	})
}

func TestMemorySubscriberRepository_Stats(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestSubscriber("a", "p1", "Chrome", "US")))
	require.NoError(t, repo.Save(ctx, newTestSubscriber("b", "p1", "Chrome", "JP")))
	require.NoError(t, repo.Save(ctx, newTestSubscriber("c", "p1", "Firefox", "US")))
	require.NoError(t, repo.Deactivate(ctx, "c"))

	stats, err := repo.Stats(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, []repositories.CountBucket{{Key: "Chrome", Count: 2}, {Key: "Firefox", Count: 1}}, stats.BrowserStats)
	assert.Equal(t, []repositories.CountBucket{{Key: "US", Count: 2}, {Key: "JP", Count: 1}}, stats.CountryStats)
}

func TestMemorySubscriberRepository_ListPaging(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, newTestSubscriber(id, "p1", "Chrome", "US")))
	}
	require.NoError(t, repo.Deactivate(ctx, "b"))

	active := true
	subs, err := repo.List(ctx, repositories.SubscriberFilter{ProjectID: "p1", Active: &active})
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	subs, err = repo.List(ctx, repositories.SubscriberFilter{ProjectID: "p1", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	subs, err = repo.List(ctx, repositories.SubscriberFilter{ProjectID: "p1", Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestMemoryNotificationRepository_Mutate(t *testing.T) {
	repo := NewMemoryNotificationRepository()
	ctx := context.Background()

	n := entities.NewNotification("n1", "p1", entities.NotificationContent{Title: "t", Message: "m"},
		entities.NotificationTypeInstant, nil, entities.TargetAudience{}, entities.Recurring{}, entities.NotificationStatusDraft)
	require.NoError(t, repo.Create(ctx, n))

	t.Run("failed mutation leaves the notification untouched", func(t *testing.T) {
		_, err := repo.Mutate(ctx, "n1", func(n *entities.Notification) error {
			n.MarkSending()
			return errors.New("abort")
		})
		require.Error(t, err)

		got, err := repo.GetByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, entities.NotificationStatusDraft, got.Status())
	})

	t.Run("successful mutation is persisted", func(t *testing.T) {
		updated, err := repo.Mutate(ctx, "n1", func(n *entities.Notification) error {
			n.RecordDelivery(entities.DispatchResult{Sent: 3, Delivered: 2, Failed: 1}, time.Now())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, entities.NotificationStatusSent, updated.Status())

		got, err := repo.GetByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, entities.NotificationCounters{Sent: 3, Delivered: 2, Failed: 1}, got.Counters())
	})

	t.Run("missing notification", func(t *testing.T) {
		_, err := repo.Mutate(ctx, "missing", func(n *entities.Notification) error { return nil })
		var notFound entities.ErrNotFound
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestMemoryNotificationRepository_FindDue(t *testing.T) {
	repo := NewMemoryNotificationRepository()
	ctx := context.Background()
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := entities.NewNotification("due", "p1", entities.NotificationContent{Title: "t"},
		entities.NotificationTypeRecurring, &past, entities.TargetAudience{},
		entities.Recurring{Enabled: true, Frequency: entities.FrequencyDaily, Interval: 1, NextSendDate: &past},
		entities.NotificationStatusScheduled)
	later := entities.NewNotification("later", "p1", entities.NotificationContent{Title: "t"},
		entities.NotificationTypeScheduled, &future, entities.TargetAudience{}, entities.Recurring{},
		entities.NotificationStatusScheduled)
	draft := entities.NewNotification("draft", "p1", entities.NotificationContent{Title: "t"},
		entities.NotificationTypeInstant, nil, entities.TargetAudience{}, entities.Recurring{},
		entities.NotificationStatusDraft)
	for _, n := range []*entities.Notification{due, later, draft} {
		require.NoError(t, repo.Create(ctx, n))
	}

	found, err := repo.FindDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "due", found[0].ID())
}

func TestMemoryAutomationRepository_RecordTrigger(t *testing.T) {
	repo := NewMemoryAutomationRepository()
	ctx := context.Background()

	a := entities.NewAutomation("a1", "p1", "cart", "",
		entities.Trigger{Type: entities.TriggerTypeEvent, EventName: "cart_abandoned"},
		entities.Action{NotificationID: "n1"}, entities.TargetAudience{})
	require.NoError(t, repo.Create(ctx, a))

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.RecordTrigger(ctx, "a1", at)
	require.NoError(t, err)
	got, err := repo.RecordTrigger(ctx, "a1", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, got.TriggerCount())
	require.NotNil(t, got.LastTriggered())
	assert.Equal(t, at.Add(time.Minute), *got.LastTriggered())

	// Update keeps the counters maintained by RecordTrigger
	a.SetActive(false)
	require.NoError(t, repo.Update(ctx, a))
	got, err = repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, got.IsActive())
	assert.Equal(t, 2, got.TriggerCount())

	matching, err := repo.FindEventTriggered(ctx, "p1", "cart_abandoned")
	require.NoError(t, err)
	assert.Empty(t, matching)
}

func TestMemoryEventRepository_List(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 150; i++ {
		name := "page_view"
		if i%2 == 0 {
			name = "purchase"
		}
		e := entities.NewEvent(fmt.Sprintf("e%d", i), "p1", "", name, nil, "", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, e))
	}

	t.Run("default limit", func(t *testing.T) {
		events, err := repo.List(ctx, repositories.EventFilter{ProjectID: "p1"})
		require.NoError(t, err)
		assert.Len(t, events, repositories.DefaultEventListLimit)
		assert.True(t, events[0].Timestamp().After(events[1].Timestamp()))
	})

	t.Run("name and window filters", func(t *testing.T) {
		start := base.Add(10 * time.Minute)
		end := base.Add(19 * time.Minute)
		events, err := repo.List(ctx, repositories.EventFilter{ProjectID: "p1", EventName: "purchase", Start: &start, End: &end})
		require.NoError(t, err)
		assert.Len(t, events, 5)
		for _, e := range events {
			assert.Equal(t, "purchase", e.Name())
		}
	})
}

func TestMemoryProjectRepository_APIKey(t *testing.T) {
	repo := NewMemoryProjectRepository()
	ctx := context.Background()

	p := entities.NewProject("p1", "owner", "Shop", "shop.example.com", entities.PlatformWebsite,
		entities.VAPIDKeys{PublicKey: "pub"}, entities.APIKey{Key: "key-1", Name: "default", Active: true, CreatedAt: time.Now()})
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByAPIKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID())

	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchAPIKey(ctx, "p1", "key-1", at))
	got, err = repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.APIKeys()[0].LastUsed)
	assert.Equal(t, at, *got.APIKeys()[0].LastUsed)

	_, err = repo.GetByAPIKey(ctx, "unknown")
	assert.Error(t, err)
}

func subscriberIDs(subs []*entities.Subscriber) []string {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID())
	}
	return ids
}
