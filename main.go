package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/takutakahashi/pushnotify/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "pushnotify",
	Short: "Web push notification service",
	Long:  "A web push notification backend: subscriber targeting, fan-out dispatch, scheduling and event automations",
}

func init() {
	rootCmd.AddCommand(cmd.ServerCmd)
	rootCmd.AddCommand(cmd.SchedulerCmd)
	rootCmd.AddCommand(cmd.HelpersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
