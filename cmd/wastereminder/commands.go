package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"WasteReminder/internal/app"
	"WasteReminder/internal/config"
	"WasteReminder/internal/logging"
)

var (
	fetchStrategy   string
	fetchPostalCode string
	fetchNumber     int
	fetchStore      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh reminders on a schedule and serve them over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		application, err := app.New(cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format))
		if err != nil {
			return err
		}
		return application.Run(cmd.Context())
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one acquisition and print the reminder mapping as JSON",
	Long: `Run one acquisition for the configured address and print the mapping.

Flags override the configured strategy and address. With --store the result
also replaces the stored dates.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchStrategy, "strategy", "s", "", "Acquisition strategy (text-regex, text-direct, rest-feed)")
	fetchCmd.Flags().StringVar(&fetchPostalCode, "postal-code", "", "Postal code, e.g. 1826AA")
	fetchCmd.Flags().IntVarP(&fetchNumber, "number", "n", 0, "House number")
	fetchCmd.Flags().BoolVar(&fetchStore, "store", false, "Replace stored dates with the result")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFetchFlags(&cfg, fetchStrategy, fetchPostalCode, fetchNumber)

	application, err := app.New(cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format))
	if err != nil {
		return err
	}

	mapping, err := application.Fetch(cmd.Context(), fetchStore)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(mapping)
}

// applyFetchFlags lets non-empty flag values override the loaded config.
func applyFetchFlags(cfg *config.Config, strategy, postalCode string, number int) {
	if strategy != "" {
		cfg.Source.Strategy = strategy
	}
	if postalCode = config.NormalizePostalCode(postalCode); postalCode != "" {
		cfg.Address.PostalCode = postalCode
	}
	if number > 0 {
		cfg.Address.HouseNumber = number
	}
}
