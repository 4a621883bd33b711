package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wastereminder",
	Short: "Waste collection reminder service",
	Long: `wastereminder collects the waste pickup calendar for one address and
turns it into reminder dates (the day before each pickup).

Available commands:
  serve  - Refresh on a schedule and serve stored dates over HTTP
  fetch  - Run a single acquisition and print the reminder mapping

Examples:
  wastereminder serve
  wastereminder fetch --strategy rest-feed --postal-code 1826AA --number 1`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
