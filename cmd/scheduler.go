package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/takutakahashi/pushnotify/internal/di"
	"github.com/takutakahashi/pushnotify/internal/usecases/recurring"
	"github.com/takutakahashi/pushnotify/pkg/schedule"
)

var SchedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Send scheduled and recurring notifications",
	Long:  "Run the scheduler that sends one-time scheduled notifications and recurring notifications once they are due",
}

var schedulerTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single scheduler pass and exit",
	Long: `Send every notification that is due now and exit.

Per-notification failures are logged and counted. The command exits non-zero only when
the pass itself fails, for example because storage is unreachable.`,
	RunE:         runSchedulerTick,
	SilenceUsage: true,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler worker without the HTTP API",
	Run:   runSchedulerWorker,
}

func init() {
	addConfigFlags(SchedulerCmd.PersistentFlags())
	schedulerRunCmd.Flags().String("spec", "@every 1m", "Cron spec of the tick cadence")
	bindFlag("scheduler.spec", schedulerRunCmd.Flags(), "spec")

	SchedulerCmd.AddCommand(schedulerTickCmd)
	SchedulerCmd.AddCommand(schedulerRunCmd)
}

func runSchedulerTick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer container.Close()

	result, err := container.TickUC.Execute(ctx, time.Now())
	if err != nil {
		return err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runSchedulerWorker(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg.Scheduler.Enabled = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer container.Close()

	stop, err := startScheduler(ctx, container)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, stopping scheduler...")
	stop()
}

// startScheduler starts the tick worker, behind a Kubernetes lease when leader election is
// enabled. The returned function stops it and waits for a running tick.
func startScheduler(ctx context.Context, container *di.Container) (func(), error) {
	cfg := container.Config.Scheduler

	worker, err := schedule.NewWorker(tickFunc(container.TickUC), schedule.WorkerConfig{
		Spec:    cfg.Spec,
		Enabled: cfg.Enabled,
	})
	if err != nil {
		return nil, err
	}

	if !cfg.LeaderElection.Enabled {
		if err := worker.Start(ctx); err != nil {
			return nil, err
		}
		return worker.Stop, nil
	}

	client, err := schedule.NewInClusterClient()
	if err != nil {
		return nil, err
	}
	electionConfig := schedule.DefaultLeaderElectionConfig(cfg.LeaderElection.Namespace)
	if cfg.LeaderElection.LeaseName != "" {
		electionConfig.LeaseName = cfg.LeaderElection.LeaseName
	}

	runCtx, cancel := context.WithCancel(ctx)
	leader := schedule.NewLeaderWorker(worker, client, electionConfig)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := leader.Run(runCtx); err != nil {
			log.Printf("[LEADER_ELECTION] %v", err)
		}
	}()
	log.Printf("[SCHEDULER] Waiting for lease %s/%s", electionConfig.Namespace, electionConfig.LeaseName)

	return func() {
		cancel()
		leader.Stop()
		<-done
	}, nil
}

func tickFunc(uc *recurring.TickUseCase) schedule.TickFunc {
	return func(ctx context.Context, now time.Time) error {
		result, err := uc.Execute(ctx, now)
		if err != nil {
			return err
		}
		if result.Processed+result.Failed+result.Skipped > 0 {
			log.Printf("[SCHEDULER] Processed %d, failed %d, skipped %d", result.Processed, result.Failed, result.Skipped)
		}
		return nil
	}
}
