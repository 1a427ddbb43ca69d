// Package serp finds candidate research pages for a topic through a web
// search engine.
package serp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/FranksOps/quill/pkg/httpclient"
)

// Result is one organic search hit.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Rank  int    `json:"rank"`
}

// Provider abstracts a search engine. Implementations may scrape result
// pages or call an official API. limit caps the number of results returned.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("serp: unknown provider")

// StatusError reports a non-200 answer from a search backend.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
}

// Temporary reports whether the request is worth repeating.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

const maxResponseBytes = 4 << 20

// retryDelay is the base delay between attempts on transient errors.
var retryDelay = time.Second

func isTransient(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Temporary()
}

// get fetches target and returns its body, mapping non-200 answers onto
// *StatusError.
func get(ctx context.Context, client *httpclient.Client, provider, target string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	body, err := httpclient.ReadBody(resp, maxResponseBytes)
	if err != nil && !errors.Is(err, httpclient.ErrBodyTooLarge) {
		return nil, fmt.Errorf("%s: read body: %w", provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// CollectOptions bound Collect.
type CollectOptions struct {
	MaxLinks    int
	MaxExamined int
}

// DefaultCollectOptions keeps five links out of at most twenty examined.
func DefaultCollectOptions() CollectOptions {
	return CollectOptions{MaxLinks: 5, MaxExamined: 20}
}

// Collect asks p for results on topic and keeps organic, distinct URLs in
// rank order. Sponsored or ad redirect URLs are skipped. Transient errors
// are retried; a final failure is logged and whatever was gathered is
// returned.
func Collect(ctx context.Context, p Provider, topic string, opts CollectOptions, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultCollectOptions()
	if opts.MaxLinks <= 0 {
		opts.MaxLinks = def.MaxLinks
	}
	if opts.MaxExamined <= 0 {
		opts.MaxExamined = def.MaxExamined
	}
	log := logger.With("provider", p.Name(), "topic", topic)

	var results []Result
	err := retry.Do(
		func() error {
			var err error
			results, err = p.Search(ctx, topic, opts.MaxExamined)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("search failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		log.Error("search failed", "error", err)
	}

	seen := make(map[string]struct{})
	links := make([]string, 0, opts.MaxLinks)
	for i, r := range results {
		if i >= opts.MaxExamined || len(links) >= opts.MaxLinks {
			break
		}
		u := strings.TrimSpace(r.URL)
		if u == "" || strings.Contains(u, "aclk") || strings.Contains(u, "sponsored") {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		links = append(links, u)
	}
	log.Info("collected search results", "links", len(links), "examined", min(len(results), opts.MaxExamined))
	return links
}

// Config selects and configures a Provider.
type Config struct {
	Provider     string
	GoogleAPIKey string
	GoogleCX     string
	Language     string
	// BaseURL overrides the endpoint of the selected provider.
	BaseURL string
	// URLs feeds the static provider.
	URLs []string
}

// New builds the Provider named by cfg.Provider. Empty means google.
func New(cfg Config, client *httpclient.Client, logger *slog.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "google":
		return NewGoogleScrape(client, cfg.Language, cfg.BaseURL, logger), nil
	case "customsearch":
		if cfg.GoogleAPIKey == "" || cfg.GoogleCX == "" {
			return nil, errors.New("serp: customsearch needs google_api_key and google_cx")
		}
		return NewCustomSearch(client, cfg.GoogleAPIKey, cfg.GoogleCX, cfg.Language, cfg.BaseURL), nil
	case "duckduckgo":
		return NewDuckDuckGo(client, cfg.BaseURL), nil
	case "static":
		return NewStatic(cfg.URLs...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
