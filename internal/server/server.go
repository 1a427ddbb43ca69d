// Package server exposes batch generation over HTTP: log in, upload a
// spreadsheet, download the archive of generated documents.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/quill/internal/auth"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/pipeline"
	"github.com/FranksOps/quill/internal/sheet"
)

const defaultMaxUploadBytes = 32 << 20

// Runner executes one batch.
type Runner interface {
	Run(ctx context.Context, session auth.Session, table *sheet.Table) (*pipeline.Result, error)
}

// Factory builds a Runner for the requested model that writes documents to
// outputDir. An empty model means the configured default.
type Factory func(model, outputDir string) (Runner, error)

// Config tunes the server.
type Config struct {
	Addr           string
	MaxUploadBytes int64
}

// Server is the HTTP surface.
type Server struct {
	cfg     Config
	auth    *auth.Authenticator
	factory Factory
	logger  *slog.Logger
}

// New creates a Server.
func New(cfg Config, authn *auth.Authenticator, factory Factory, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, auth: authn, factory: factory, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("POST /api/batches", s.handleBatch)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error      string `json:"error"`
	FailedRows []int  `json:"failed_rows,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid login request"})
		return
	}

	session, err := s.auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, session)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	session, err := s.auth.Lookup(bearerToken(r))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a spreadsheet must be uploaded in the 'file' field"})
		return
	}
	defer file.Close()

	table, err := sheet.Read(file, hdr.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	dir, err := os.MkdirTemp("", "quill-batch-*")
	if err != nil {
		s.logger.Error("failed to create batch directory", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	defer os.RemoveAll(dir)

	model := strings.TrimSpace(r.FormValue("model"))
	runner, err := s.factory(model, dir)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	log := s.logger.With("user", session.User, "file", hdr.Filename, "model", model)
	log.Info("batch upload accepted", "bytes", hdr.Size)

	res, err := runner.Run(r.Context(), session, table)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sheet.ErrMissingColumn) {
			status = http.StatusUnprocessableEntity
		}
		log.Error("batch failed", "error", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	var failed []int
	for _, row := range res.Failed() {
		failed = append(failed, row.Row)
	}

	var buf bytes.Buffer
	if err := pipeline.WriteArchive(&buf, res.Files()); err != nil {
		if errors.Is(err, pipeline.ErrNoDocuments) {
			log.Warn("no article generated", "failed_rows", failed)
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), FailedRows: failed})
			return
		}
		log.Error("failed to build archive", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to build archive"})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pipeline.ArchiveName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Run-ID", res.RunID)
	w.Header().Set("X-Failed-Rows", joinInts(failed))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn("failed to send archive", "error", err)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
