package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/repositories"
	"github.com/takutakahashi/pushnotify/internal/testutils"
	"github.com/takutakahashi/pushnotify/internal/usecases/automation"
	portrepos "github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*entities.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e *entities.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type recordingMatcher struct {
	names []string
}

func (m *recordingMatcher) OnEvent(ctx context.Context, e *entities.Event) (*automation.MatchResult, error) {
	m.names = append(m.names, e.Name())
	return &automation.MatchResult{Matched: 1, Dispatched: 1}, nil
}

func setup(t *testing.T) (*repositories.MemoryProjectRepository, *repositories.MemoryEventRepository) {
	t.Helper()
	projects := repositories.NewMemoryProjectRepository()
	require.NoError(t, projects.Create(context.Background(), testutils.NewProject("p1", "owner")))
	return projects, repositories.NewMemoryEventRepository()
}

func TestTrackEvent(t *testing.T) {
	projects, events := setup(t)
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	matcher := &recordingMatcher{}
	uc := NewTrackEventUseCase(project.NewManageProjectUseCase(projects), events, publisher, matcher)
	ctx := context.Background()

	resp, err := uc.Execute(ctx, &TrackEventRequest{
		APIKey: "key-p1",
		Name:   " signup ",
		Data:   map[string]interface{}{"plan": "pro"},
		URL:    "https://shop.example.com/join",
	})
	require.NoError(t, err, "publisher failures do not fail ingestion")

	assert.Equal(t, "p1", resp.Event.ProjectID())
	assert.Equal(t, "signup", resp.Event.Name())
	assert.Equal(t, 1, resp.Match.Dispatched)
	assert.Equal(t, []string{"signup"}, matcher.names)
	assert.Len(t, publisher.events, 1)

	stored, err := events.List(ctx, portrepos.EventFilter{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "pro", stored[0].Data()["plan"])

	p, err := projects.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, p.APIKeys(), 1)
	assert.NotNil(t, p.APIKeys()[0].LastUsed)
}

func TestTrackEvent_Timestamp(t *testing.T) {
	projects, events := setup(t)
	uc := NewTrackEventUseCase(project.NewManageProjectUseCase(projects), events, nil, nil)
	ingest := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return ingest }
	ctx := context.Background()

	reported := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	resp, err := uc.Execute(ctx, &TrackEventRequest{APIKey: "key-p1", Name: "signup", Timestamp: &reported})
	require.NoError(t, err)
	assert.Equal(t, reported, resp.Event.Timestamp())

	resp, err = uc.Execute(ctx, &TrackEventRequest{APIKey: "key-p1", Name: "signup"})
	require.NoError(t, err)
	assert.Equal(t, ingest, resp.Event.Timestamp())

	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	stored, err := events.List(ctx, portrepos.EventFilter{ProjectID: "p1", End: &end})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, reported, stored[0].Timestamp())
}

func TestTrackEvent_Rejections(t *testing.T) {
	projects, events := setup(t)
	uc := NewTrackEventUseCase(project.NewManageProjectUseCase(projects), events, nil, nil)
	ctx := context.Background()

	_, err := uc.Execute(ctx, &TrackEventRequest{APIKey: "wrong", Name: "signup"})
	var notFound entities.ErrNotFound
	assert.True(t, errors.As(err, &notFound))

	_, err = uc.Execute(ctx, &TrackEventRequest{Name: "signup"})
	var validation entities.ErrValidation
	assert.True(t, errors.As(err, &validation))

	_, err = uc.Execute(ctx, &TrackEventRequest{APIKey: "key-p1", Name: "  "})
	assert.True(t, errors.As(err, &validation))

	stored, err := events.List(ctx, portrepos.EventFilter{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestListEvents(t *testing.T) {
	projects, events := setup(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"signup", "purchase", "signup"} {
		require.NoError(t, events.Create(ctx, entities.NewEvent(name+string(rune('0'+i)), "p1", "", name, nil, "", base.Add(time.Duration(i)*time.Hour))))
	}
	uc := NewListEventsUseCase(projects, events)

	list, err := uc.Execute(ctx, "owner", portrepos.EventFilter{ProjectID: "p1", EventName: "signup"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Timestamp().After(list[1].Timestamp()), "newest first")

	start := base.Add(30 * time.Minute)
	list, err = uc.Execute(ctx, "owner", portrepos.EventFilter{ProjectID: "p1", Start: &start, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "signup", list[0].Name())

	_, err = uc.Execute(ctx, "intruder", portrepos.EventFilter{ProjectID: "p1"})
	var forbidden entities.ErrForbidden
	assert.True(t, errors.As(err, &forbidden))

	end := base.Add(-time.Hour)
	_, err = uc.Execute(ctx, "owner", portrepos.EventFilter{ProjectID: "p1", Start: &start, End: &end})
	var validation entities.ErrValidation
	assert.True(t, errors.As(err, &validation))
}
