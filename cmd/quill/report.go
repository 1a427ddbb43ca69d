package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/quill/internal/report"
	"github.com/FranksOps/quill/internal/storage"
)

var (
	reportRunID  string
	reportStatus string
	reportSince  time.Duration
	reportLimit  int
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored row records",
	Long: `Summarize the row records kept by the configured storage backend.

Examples:
  quill report --run 5f0c...             # one batch
  quill report --since 24h --status failed --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()
		if _, ok := store.(storage.Discard); ok {
			return fmt.Errorf("storage.driver is %q: nothing to report", cfg.Storage.Driver)
		}

		records, err := store.Query(ctx, reportFilter(time.Now()))
		if err != nil {
			return fmt.Errorf("failed to query records: %w", err)
		}
		return report.Write(cmd.OutOrStdout(), reportFormat, report.GenerateSummary(records))
	},
}

// reportFilter turns the report flags into a storage filter relative to now.
func reportFilter(now time.Time) storage.Filter {
	filter := storage.Filter{
		RunID:  reportRunID,
		Status: reportStatus,
		Limit:  reportLimit,
	}
	if reportSince > 0 {
		since := now.Add(-reportSince)
		filter.Since = &since
	}
	return filter
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "only records of this batch run")
	reportCmd.Flags().StringVar(&reportStatus, "status", "", "only records with this status: accepted or failed")
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only records newer than this")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0, "maximum records (0 for all)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format: text, json, yaml or html")
}
