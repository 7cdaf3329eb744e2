package schedule

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"
)

// LeaderElectionConfig describes the Kubernetes Lease the scheduler replicas compete for
type LeaderElectionConfig struct {
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration
	LeaseName     string
	Namespace     string
	// Identity names this replica in the lease. Empty means POD_NAME, or the hostname plus a random suffix.
	Identity string
}

// DefaultLeaderElectionConfig returns lease timings suited to a one minute tick cadence
func DefaultLeaderElectionConfig(namespace string) LeaderElectionConfig {
	return LeaderElectionConfig{
		LeaseDuration: 15 * time.Second,
		RenewDeadline: 10 * time.Second,
		RetryPeriod:   2 * time.Second,
		LeaseName:     "pushnotify-scheduler",
		Namespace:     namespace,
	}
}

// LeaderElector acquires a Lease and re-enters the election whenever leadership is lost
type LeaderElector struct {
	client   kubernetes.Interface
	config   LeaderElectionConfig
	identity string
	leading  atomic.Bool
}

// NewLeaderElector creates a new LeaderElector
func NewLeaderElector(client kubernetes.Interface, config LeaderElectionConfig) *LeaderElector {
	return &LeaderElector{
		client:   client,
		config:   config,
		identity: replicaIdentity(config.Identity),
	}
}

func replicaIdentity(configured string) string {
	if configured != "" {
		return configured
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		return pod
	}
	hostname, _ := os.Hostname()
	return hostname + "_" + uuid.New().String()[:8]
}

// Run competes for the lease until ctx is cancelled. onStartedLeading receives a context
// that is cancelled when leadership is lost; onStoppedLeading runs after every term.
func (l *LeaderElector) Run(ctx context.Context, onStartedLeading func(ctx context.Context), onStoppedLeading func()) error {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      l.config.LeaseName,
			Namespace: l.config.Namespace,
		},
		Client:     l.client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{Identity: l.identity},
	}

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		ReleaseOnCancel: true,
		LeaseDuration:   l.config.LeaseDuration,
		RenewDeadline:   l.config.RenewDeadline,
		RetryPeriod:     l.config.RetryPeriod,
		Name:            l.config.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(leaderCtx context.Context) {
				l.leading.Store(true)
				log.Printf("[LEADER_ELECTION] %s acquired lease %s/%s", l.identity, l.config.Namespace, l.config.LeaseName)
				onStartedLeading(leaderCtx)
			},
			OnStoppedLeading: func() {
				l.leading.Store(false)
				log.Printf("[LEADER_ELECTION] %s released lease %s/%s", l.identity, l.config.Namespace, l.config.LeaseName)
				if onStoppedLeading != nil {
					onStoppedLeading()
				}
			},
			OnNewLeader: func(identity string) {
				if identity != l.identity {
					log.Printf("[LEADER_ELECTION] Current leader is %s", identity)
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("invalid leader election config: %w", err)
	}

	// elector.Run returns once a term ends, so rejoin until shutdown
	for ctx.Err() == nil {
		elector.Run(ctx)
		select {
		case <-ctx.Done():
		case <-time.After(l.config.RetryPeriod):
		}
	}
	return nil
}

// IsLeader reports whether this replica currently holds the lease
func (l *LeaderElector) IsLeader() bool {
	return l.leading.Load()
}

// Identity returns the identity of this elector
func (l *LeaderElector) Identity() string {
	return l.identity
}

// LeaderWorker runs the scheduler worker only while this replica holds the lease,
// so due notifications are sent by one replica at a time
type LeaderWorker struct {
	worker  *Worker
	elector *LeaderElector
}

// NewLeaderWorker creates a new LeaderWorker
func NewLeaderWorker(worker *Worker, client kubernetes.Interface, electionConfig LeaderElectionConfig) *LeaderWorker {
	return &LeaderWorker{
		worker:  worker,
		elector: NewLeaderElector(client, electionConfig),
	}
}

// NewInClusterClient builds a Kubernetes client from the pod's service account
func NewInClusterClient() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load in-cluster config: %w", err)
	}
	return kubernetes.NewForConfig(cfg)
}

// Run blocks until ctx is cancelled
func (lw *LeaderWorker) Run(ctx context.Context) error {
	return lw.elector.Run(ctx,
		func(leaderCtx context.Context) {
			if err := lw.worker.Start(leaderCtx); err != nil {
				log.Printf("[LEADER_ELECTION] Failed to start worker: %v", err)
				return
			}
			<-leaderCtx.Done()
		},
		lw.worker.Stop,
	)
}

// IsLeader reports whether this replica is the one ticking
func (lw *LeaderWorker) IsLeader() bool {
	return lw.elector.IsLeader()
}

// Stop stops the worker and waits for a running tick to finish
func (lw *LeaderWorker) Stop() {
	lw.worker.Stop()
}
