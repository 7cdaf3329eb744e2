package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/takutakahashi/pushnotify/internal/app"
	"github.com/takutakahashi/pushnotify/internal/di"
)

var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the push notification API server",
	Long:  "Start the HTTP API together with the scheduler worker that sends scheduled and recurring notifications",
	Run:   runServer,
}

func init() {
	addConfigFlags(ServerCmd.Flags())
	ServerCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	ServerCmd.Flags().Bool("scheduler", true, "Run the scheduler worker in this process")

	bindFlag("server.port", ServerCmd.Flags(), "port")
	bindFlag("scheduler.enabled", ServerCmd.Flags(), "scheduler")
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer container.Close()

	server := app.NewServer(container, verbose)

	stopScheduler := func() {}
	if cfg.Scheduler.Enabled {
		stopScheduler, err = startScheduler(ctx, container)
		if err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	go func() {
		if err := server.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	schedulerDone := make(chan struct{})
	go func() {
		stopScheduler()
		close(schedulerDone)
	}()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		log.Printf("Shutdown timeout reached")
		return
	}

	log.Printf("Server shutdown complete")
}
