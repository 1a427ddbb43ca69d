package main

import (
	"github.com/spf13/cobra"

	"github.com/FranksOps/quill/internal/auth"
	"github.com/FranksOps/quill/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

The server provides:
  - POST /api/login   - exchange username and password for a session token
  - POST /api/logout  - revoke the session token
  - POST /api/batches - upload a spreadsheet, receive the zip archive
  - GET  /healthz     - liveness check
  - GET  /metrics     - Prometheus metrics

Examples:
  quill serve
  quill serve --addr 127.0.0.1:3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		authn := auth.New(auth.Config{
			Username:     cfg.Server.Username,
			PasswordHash: cfg.Server.PasswordHash,
			TTL:          cfg.Server.SessionTTL,
		}, log)

		factory := func(model, outputDir string) (server.Runner, error) {
			return a.pipeline(model, outputDir, 0), nil
		}

		srv := server.New(server.Config{
			Addr:           cfg.Server.Addr,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		}, authn, factory, log)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}
