package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PushSends counts push attempts by outcome
	PushSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushnotify_push_sends_total",
			Help: "Number of push attempts by outcome",
		},
		[]string{"outcome"},
	)

	// DispatchDuration measures the wall time of a whole dispatch
	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pushnotify_dispatch_duration_seconds",
			Help:    "Duration of notification dispatches",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SchedulerNotifications counts notifications handled by scheduler ticks
	SchedulerNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushnotify_scheduler_notifications_total",
			Help: "Number of due notifications handled by the scheduler by result",
		},
		[]string{"result"},
	)

	// AutomationFirings counts matched automations by mode
	AutomationFirings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushnotify_automation_firings_total",
			Help: "Number of automation firings by mode",
		},
		[]string{"mode"},
	)

	// EventsTracked counts ingested events
	EventsTracked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pushnotify_events_tracked_total",
			Help: "Number of tracked events",
		},
	)

	initOnce sync.Once
)

// Init registers all collectors with the default registry
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(PushSends, DispatchDuration, SchedulerNotifications, AutomationFirings, EventsTracked)
	})
}

// ObserveDispatch records the result of one dispatch
func ObserveDispatch(delivered, failed, deactivated int, elapsed time.Duration) {
	PushSends.WithLabelValues("delivered").Add(float64(delivered))
	PushSends.WithLabelValues("failed").Add(float64(failed - deactivated))
	PushSends.WithLabelValues("gone").Add(float64(deactivated))
	DispatchDuration.Observe(elapsed.Seconds())
}
