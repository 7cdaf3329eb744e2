package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

// RecentNotificationLimit caps the notifications returned with a report
const RecentNotificationLimit = 10

const dayLayout = "2006-01-02"

// Overview holds project-wide delivery totals. Rates are percentages with two decimals.
type Overview struct {
	TotalSent      int     `json:"totalSent"`
	TotalDelivered int     `json:"totalDelivered"`
	TotalClicked   int     `json:"totalClicked"`
	TotalFailed    int     `json:"totalFailed"`
	DeliveryRate   float64 `json:"deliveryRate"`
	ClickRate      float64 `json:"clickRate"`
}

// DailyCount is the number of new subscribers on one UTC day
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DailyPerformance sums the counters of notifications last sent on one UTC day
type DailyPerformance struct {
	Day       string `json:"day"`
	Sent      int    `json:"sent"`
	Delivered int    `json:"delivered"`
	Clicked   int    `json:"clicked"`
}

// Report is the analytics view of a project
type Report struct {
	Overview                Overview                 `json:"overview"`
	SubscriberGrowth        []DailyCount             `json:"subscriberGrowth"`
	NotificationPerformance []DailyPerformance       `json:"notificationPerformance"`
	RecentNotifications     []*entities.Notification `json:"-"`
}

// ProjectReportUseCase computes a project's analytics
type ProjectReportUseCase struct {
	projectRepo      repositories.ProjectRepository
	notificationRepo repositories.NotificationRepository
	subscriberRepo   repositories.SubscriberRepository
}

// NewProjectReportUseCase creates a new ProjectReportUseCase
func NewProjectReportUseCase(projectRepo repositories.ProjectRepository, notificationRepo repositories.NotificationRepository, subscriberRepo repositories.SubscriberRepository) *ProjectReportUseCase {
	return &ProjectReportUseCase{
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		subscriberRepo:   subscriberRepo,
	}
}

// Execute builds the report of a project the user owns
func (uc *ProjectReportUseCase) Execute(ctx context.Context, projectID, userID string) (*Report, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	notifications, err := uc.notificationRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	subscribers, err := uc.subscriberRepo.List(ctx, repositories.SubscriberFilter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	recent := notifications
	if len(recent) > RecentNotificationLimit {
		recent = recent[:RecentNotificationLimit]
	}
	return &Report{
		Overview:                Summarize(notifications),
		SubscriberGrowth:        subscriberGrowth(subscribers),
		NotificationPerformance: notificationPerformance(notifications),
		RecentNotifications:     recent,
	}, nil
}

// Summarize totals the counters of notifications
func Summarize(notifications []*entities.Notification) Overview {
	var o Overview
	for _, n := range notifications {
		c := n.Counters()
		o.TotalSent += c.Sent
		o.TotalDelivered += c.Delivered
		o.TotalClicked += c.Clicked
		o.TotalFailed += c.Failed
	}
	o.DeliveryRate = percentage(o.TotalDelivered, o.TotalSent)
	o.ClickRate = percentage(o.TotalClicked, o.TotalDelivered)
	return o
}

// percentage returns part/whole*100 rounded to two decimals, or 0 for an empty whole
func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}

func subscriberGrowth(subscribers []*entities.Subscriber) []DailyCount {
	counts := map[string]int{}
	for _, s := range subscribers {
		counts[s.SubscribedAt().UTC().Format(dayLayout)]++
	}
	out := make([]DailyCount, 0, len(counts))
	for day, c := range counts {
		out = append(out, DailyCount{Day: day, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

func notificationPerformance(notifications []*entities.Notification) []DailyPerformance {
	byDay := map[string]*DailyPerformance{}
	for _, n := range notifications {
		sentAt := n.SentAt()
		if sentAt == nil {
			continue
		}
		day := sentAt.UTC().Format(dayLayout)
		p, ok := byDay[day]
		if !ok {
			p = &DailyPerformance{Day: day}
			byDay[day] = p
		}
		c := n.Counters()
		p.Sent += c.Sent
		p.Delivered += c.Delivered
		p.Clicked += c.Clicked
	}
	out := make([]DailyPerformance, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
