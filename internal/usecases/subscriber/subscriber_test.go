package subscriber

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/repositories"
	"github.com/takutakahashi/pushnotify/internal/testutils"
	portrepos "github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

func setup(t *testing.T) (*repositories.MemoryProjectRepository, *repositories.MemorySubscriberRepository) {
	t.Helper()
	projects := repositories.NewMemoryProjectRepository()
	require.NoError(t, projects.Create(context.Background(), testutils.NewProject("p1", "owner")))
	require.NoError(t, projects.Create(context.Background(), testutils.NewProject("p2", "owner")))
	return projects, repositories.NewMemorySubscriberRepository()
}

func subscribeRequest(endpoint string) *SubscribeRequest {
	return &SubscribeRequest{
		ProjectID: "p1",
		Endpoint:  endpoint,
		Keys:      entities.PushKeys{P256dh: "p256dh", Auth: "auth"},
		Profile:   entities.SubscriberProfile{UserAgent: firefoxUA, Country: "JP"},
		Tags:      []string{"vip", " vip ", ""},
	}
}

func TestSubscribe_UpsertsByEndpoint(t *testing.T) {
	projects, subscribers := setup(t)
	uc := NewSubscribeUseCase(projects, subscribers)
	ctx := context.Background()

	first, err := uc.Execute(ctx, subscribeRequest("https://push.example.com/a"))
	require.NoError(t, err)
	assert.True(t, first.Created)
	s := first.Subscriber
	assert.Equal(t, "Firefox", s.Browser())
	assert.Equal(t, "Linux", s.Profile().OS)
	assert.Equal(t, "desktop", s.Profile().Device)
	assert.Equal(t, []string{"vip"}, s.Tags())

	require.NoError(t, subscribers.Deactivate(ctx, s.ID()))

	req := subscribeRequest("https://push.example.com/a")
	req.ProjectID = "p2"
	req.Keys = entities.PushKeys{P256dh: "rotated", Auth: "rotated"}
	req.Profile.Browser = "Custom"
	second, err := uc.Execute(ctx, req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, s.ID(), second.Subscriber.ID(), "the endpoint keeps its subscriber")

	stored, err := subscribers.GetByID(ctx, s.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
	assert.Equal(t, "p2", stored.ProjectID())
	assert.Equal(t, "rotated", stored.Keys().Auth)
	assert.Equal(t, "Custom", stored.Browser(), "explicit profile fields win over detection")
}

func TestSubscribe_Validation(t *testing.T) {
	projects, subscribers := setup(t)
	uc := NewSubscribeUseCase(projects, subscribers)

	tests := []struct {
		name   string
		mutate func(r *SubscribeRequest)
	}{
		{"missing project", func(r *SubscribeRequest) { r.ProjectID = "" }},
		{"missing endpoint", func(r *SubscribeRequest) { r.Endpoint = "" }},
		{"relative endpoint", func(r *SubscribeRequest) { r.Endpoint = "/push/a" }},
		{"unsupported scheme", func(r *SubscribeRequest) { r.Endpoint = "ftp://push.example.com/a" }},
		{"missing p256dh", func(r *SubscribeRequest) { r.Keys.P256dh = "" }},
		{"missing auth", func(r *SubscribeRequest) { r.Keys.Auth = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := subscribeRequest("https://push.example.com/a")
			tt.mutate(req)
			_, err := uc.Execute(context.Background(), req)
			var validation entities.ErrValidation
			assert.True(t, errors.As(err, &validation), "got %v", err)
		})
	}

	req := subscribeRequest("https://push.example.com/a")
	req.ProjectID = "unknown"
	_, err := uc.Execute(context.Background(), req)
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	projects, subscribers := setup(t)
	ctx := context.Background()
	resp, err := NewSubscribeUseCase(projects, subscribers).Execute(ctx, subscribeRequest("https://push.example.com/a"))
	require.NoError(t, err)

	uc := NewUnsubscribeUseCase(subscribers)
	require.NoError(t, uc.Execute(ctx, "https://push.example.com/a"))
	require.NoError(t, uc.Execute(ctx, "https://push.example.com/a"))
	require.NoError(t, uc.Execute(ctx, "https://push.example.com/unknown"))

	stored, err := subscribers.GetByID(ctx, resp.Subscriber.ID())
	require.NoError(t, err)
	assert.False(t, stored.IsActive())

	var validation entities.ErrValidation
	assert.True(t, errors.As(uc.Execute(ctx, ""), &validation))
}

func TestManageSubscribers(t *testing.T) {
	projects, subscribers := setup(t)
	ctx := context.Background()
	uc := NewManageSubscribersUseCase(projects, subscribers)

	rows := []SubscribeRequest{
		*subscribeRequest("https://push.example.com/a"),
		*subscribeRequest("https://push.example.com/b"),
		{Endpoint: "not a url", Keys: entities.PushKeys{P256dh: "k", Auth: "a"}},
		*subscribeRequest("https://push.example.com/a"),
	}
	result, err := uc.Import(ctx, "p1", "owner", rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Index)

	_, err = uc.Import(ctx, "p1", "intruder", rows)
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	list, err := uc.List(ctx, &ListSubscribersRequest{ProjectID: "p1", UserID: "owner", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, NewUnsubscribeUseCase(subscribers).Execute(ctx, "https://push.example.com/b"))
	stats, err := uc.Stats(ctx, "p1", "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, []portrepos.CountBucket{{Key: "Firefox", Count: 2}}, stats.BrowserStats)
}
