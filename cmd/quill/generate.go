package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FranksOps/quill/internal/auth"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/pipeline"
	"github.com/FranksOps/quill/internal/report"
	"github.com/FranksOps/quill/internal/sheet"
)

var (
	genInput        string
	genOutput       string
	genModel        string
	genWorkers      int
	genReportFormat string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate articles for every row of a spreadsheet",
	Long: `Generate one document per spreadsheet row and bundle the accepted ones
into a zip archive. Rows that fail are reported and do not stop the batch.

Examples:
  quill generate --input rows.xlsx
  quill generate --input rows.csv --model gpt-4o --workers 4 --report-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		f, err := os.Open(genInput)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		table, err := sheet.Read(f, genInput)
		f.Close()
		if err != nil {
			return err
		}

		if cfg.Metrics.Port > 0 {
			ms := metrics.Start(cfg.Metrics.Port, log)
			defer ms.Stop(context.WithoutCancel(ctx))
			log.Info("metrics server started", "port", cfg.Metrics.Port)
		}

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		outDir := cfg.Pipeline.OutputDir
		res, err := a.pipeline(genModel, outDir, genWorkers).Run(ctx, auth.LocalSession(localUser()), table)
		if err != nil && res == nil {
			return err
		}
		runErr := err

		archive := genOutput
		if archive == "" {
			archive = filepath.Join(outDir, pipeline.ArchiveName)
		}
		if err := pipeline.WriteArchiveFile(archive, res.Files()); err != nil {
			if !errors.Is(err, pipeline.ErrNoDocuments) {
				return err
			}
			log.Warn("no article was generated, archive not written")
		} else {
			log.Info("archive written", "path", archive, "documents", len(res.Files()))
		}

		summary := report.GenerateSummary(res.Records())
		if err := report.Write(cmd.OutOrStdout(), genReportFormat, summary); err != nil {
			return err
		}
		if runErr != nil {
			return runErr
		}
		if len(res.Files()) == 0 {
			return pipeline.ErrNoDocuments
		}
		return nil
	},
}

func localUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

func init() {
	generateCmd.Flags().StringVarP(&genInput, "input", "i", "", "spreadsheet to process (.xlsx or .csv)")
	generateCmd.Flags().StringVar(&genOutput, "output", "", "archive path (default: <pipeline.output_dir>/"+pipeline.ArchiveName+")")
	generateCmd.Flags().StringVarP(&genModel, "model", "m", "", "model to generate with (default: generation.model)")
	generateCmd.Flags().IntVarP(&genWorkers, "workers", "w", 0, "rows processed concurrently (default: pipeline.workers)")
	generateCmd.Flags().StringVar(&genReportFormat, "report-format", "text", "summary format: text, json, yaml or html")
	_ = generateCmd.MarkFlagRequired("input")
}
