package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/quill/internal/config"
	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/internal/pipeline"
	"github.com/FranksOps/quill/internal/quality"
	"github.com/FranksOps/quill/internal/research"
	"github.com/FranksOps/quill/internal/scraper"
	"github.com/FranksOps/quill/internal/serp"
	"github.com/FranksOps/quill/internal/storage"
	"github.com/FranksOps/quill/internal/storage/jsonbackend"
	"github.com/FranksOps/quill/internal/storage/postgres"
	"github.com/FranksOps/quill/internal/storage/sqlite"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/FranksOps/quill/pkg/useragent"
)

// app holds the long-lived collaborators shared by every batch.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  *scraper.Fetcher
	research *research.Gatherer
	client   llm.Client
	store    storage.Backend
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.Fetch.RPS > 0 {
		limiter = ratelimit.NewLimiter(cfg.Fetch.RPS, cfg.Fetch.Jitter)
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:       cfg.Fetch.Timeout,
		UAPool:        useragent.NewPool(cfg.Fetch.UserAgents, cfg.Fetch.RandomUA),
		Fingerprint:   profile,
		Limiter:       limiter,
		RespectRobots: cfg.Fetch.RespectRobots,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	provider, err := serp.New(serp.Config{
		Provider:     cfg.Search.Provider,
		GoogleAPIKey: cfg.Search.GoogleAPIKey,
		GoogleCX:     cfg.Search.GoogleCX,
		Language:     cfg.Search.Language,
		BaseURL:      cfg.Search.BaseURL,
		URLs:         cfg.Search.URLs,
	}, fetcher.Client(), logger)
	if err != nil {
		fetcher.Close()
		return nil, err
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		fetcher.Close()
		return nil, err
	}

	gatherer := research.NewGatherer(provider, fetcher, serp.CollectOptions{
		MaxLinks:    cfg.Search.MaxLinks,
		MaxExamined: cfg.Search.MaxExamined,
	}, logger)

	client := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     cfg.Generation.Timeout,
		MaxRetries:  cfg.Generation.MaxRetries,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher,
		research: gatherer,
		client:   client,
		store:    store,
	}, nil
}

// pipeline builds a batch runner for model (the configured one when empty)
// writing documents to outputDir.
func (a *app) pipeline(model, outputDir string, workers int) *pipeline.Pipeline {
	if model == "" {
		model = a.cfg.Generation.Model
	}
	if workers <= 0 {
		workers = a.cfg.Pipeline.Workers
	}
	gen := quality.New(a.client, quality.Config{
		Model:            model,
		MaxAttempts:      a.cfg.Generation.MaxAttempts,
		TolerancePercent: a.cfg.Generation.Tolerance,
	}, a.logger)
	return pipeline.New(gen, a.research, a.store, pipeline.Config{
		OutputDir: outputDir,
		Workers:   workers,
		Columns:   a.cfg.Sheet.Columns,
	}, a.logger)
}

func (a *app) Close() {
	a.fetcher.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close storage", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return storage.Discard{}, nil
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "jsonl":
		return jsonbackend.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, cfg.Driver)
	}
}
