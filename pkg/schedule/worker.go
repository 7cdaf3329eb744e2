package schedule

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TickFunc processes everything due at now
type TickFunc func(ctx context.Context, now time.Time) error

// WorkerConfig contains configuration for the scheduler worker
type WorkerConfig struct {
	// Spec is the cron cadence of ticks
	Spec string
	// Enabled indicates whether the worker should run
	Enabled bool
}

// DefaultWorkerConfig returns the default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Spec:    "@every 1m",
		Enabled: true,
	}
}

// Worker runs a tick function on a cron cadence. Ticks never overlap:
// a tick that is still running when the next one is due causes that one to be skipped.
type Worker struct {
	tick   TickFunc
	config WorkerConfig

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewWorker creates a new scheduler worker
func NewWorker(tick TickFunc, config WorkerConfig) (*Worker, error) {
	if tick == nil {
		return nil, errors.New("tick function is required")
	}
	if _, err := ParseSpec(config.Spec); err != nil {
		return nil, err
	}
	return &Worker{tick: tick, config: config}, nil
}

// Start begins ticking until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if !w.config.Enabled {
		log.Printf("[SCHEDULER] Worker disabled")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(w.config.Spec, func() { w.RunOnce(runCtx) }); err != nil {
		cancel()
		return err
	}
	c.Start()

	w.cron = c
	w.cancel = cancel
	w.running = true

	go func() {
		<-runCtx.Done()
		w.Stop()
	}()

	log.Printf("[SCHEDULER] Started with spec %q", w.config.Spec)
	return nil
}

// RunOnce runs a single tick now
func (w *Worker) RunOnce(ctx context.Context) {
	started := time.Now()
	if err := w.tick(ctx, started); err != nil {
		log.Printf("[SCHEDULER] Tick failed: %v", err)
		return
	}
	log.Printf("[SCHEDULER] Tick finished in %v", time.Since(started))
}

// Stop gracefully stops the worker and waits for a running tick to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	c, cancel := w.cron, w.cancel
	w.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	log.Printf("[SCHEDULER] Stopped")
}

// IsRunning reports whether the worker is ticking
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
