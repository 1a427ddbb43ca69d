package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FranksOps/quill/internal/config"
	"github.com/FranksOps/quill/internal/logger"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Generate Persian SEO articles from a spreadsheet",
	Long: `Quill reads a spreadsheet of article requests, researches each topic on
the web, asks a language model for a draft and corrects it until the word
count and keywords fit. Accepted articles are written as right-to-left Word
documents with their links and bundled into a zip archive.`,
	Version:      GitRelease,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c
		log, _ = logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		slog.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./quill.yaml or ~/.quill/quill.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "override log.level: debug, info, warn or error",
	)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(versionCmd)
}
