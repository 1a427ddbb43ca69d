// Package scraper fetches research pages and reduces them to plain text.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/pkg/httpclient"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/FranksOps/quill/pkg/useragent"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultMaxBodyBytes   = 5 << 20
	defaultAcceptLanguage = "fa-IR,fa;q=0.9,en-US;q=0.8,en;q=0.7"
	defaultRobotsAgent    = "quill"
	acceptHTML            = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// FetchConfig configures the Fetcher.
type FetchConfig struct {
	Timeout        time.Duration
	MaxRedirects   int
	MaxBodyBytes   int64
	UAPool         *useragent.Pool
	Fingerprint    fingerprint.Profile
	Limiter        *ratelimit.Limiter
	AcceptLanguage string
	RespectRobots  bool
	RobotsAgent    string
}

// Page is the outcome of one GET. Transport failures are reported in Error
// rather than as a Go error so callers can log and move on.
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
	Challenge  string
	Error      string
}

// OK reports whether the page can be used as research material.
func (p *Page) OK() bool {
	return p != nil && p.Error == "" && p.Challenge == "" && p.StatusCode == http.StatusOK
}

// Fetcher performs single URL fetches with a rotating User-Agent and a
// fingerprinted TLS transport.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	robots *RobotsGate
	logger *slog.Logger
}

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil, false)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = defaultAcceptLanguage
	}
	if cfg.RobotsAgent == "" {
		cfg.RobotsAgent = defaultRobotsAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
		UserAgent:    cfg.UAPool.Next,
		Header: http.Header{
			"Accept":          {acceptHTML},
			"Accept-Language": {cfg.AcceptLanguage},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	f := &Fetcher{config: cfg, client: client, logger: logger}
	if cfg.RespectRobots {
		f.robots = NewRobotsGate(f, logger)
	}
	return f, nil
}

// Client exposes the configured HTTP client so other collaborators share
// its transport and headers.
func (f *Fetcher) Client() *httpclient.Client {
	return f.client
}

// Fetch issues a GET for targetURL. The error is non-nil only when the URL
// cannot be requested at all.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", targetURL)
	}

	start := time.Now()
	page := &Page{URL: targetURL, FetchedAt: start.UTC()}

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			page.Error = fmt.Sprintf("rate limiter failed: %v", err)
			return page, nil
		}
	}

	resp, err := f.client.Get(ctx, targetURL)
	if err != nil {
		page.Error = fmt.Sprintf("request failed: %v", err)
		page.Duration = time.Since(start)
		metrics.RecordFetch(u.Hostname(), 0, "", 0, page.Duration)
		return page, nil
	}

	body, err := httpclient.ReadBody(resp, f.config.MaxBodyBytes)
	if err != nil && !errors.Is(err, httpclient.ErrBodyTooLarge) {
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body = body
	page.Duration = time.Since(start)
	page.Challenge = DetectChallenge(page, DefaultDetectors())

	metrics.RecordFetch(u.Hostname(), page.StatusCode, page.Challenge, len(body), page.Duration)
	return page, nil
}

// Text fetches targetURL and returns its visible text. Every failure is
// logged and yields "".
func (f *Fetcher) Text(ctx context.Context, targetURL string) string {
	log := f.logger.With("url", targetURL)

	if f.robots != nil && !f.robots.Allowed(ctx, targetURL, f.config.RobotsAgent) {
		log.Info("skipping page disallowed by robots.txt")
		return ""
	}

	page, err := f.Fetch(ctx, targetURL)
	switch {
	case err != nil:
		log.Warn("cannot fetch page", "error", err)
		return ""
	case page.Error != "":
		log.Warn("fetch failed", "error", page.Error)
		return ""
	case page.Challenge != "":
		log.Warn("bot challenge detected", "source", page.Challenge, "status", page.StatusCode)
		return ""
	case page.StatusCode != http.StatusOK:
		log.Warn("unexpected status", "status", page.StatusCode)
		return ""
	}

	text, err := ExtractText(page.Body)
	if err != nil {
		log.Warn("failed to extract text", "error", err)
		return ""
	}
	log.Debug("fetched page", "bytes", len(page.Body), "duration", page.Duration)
	return text
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
