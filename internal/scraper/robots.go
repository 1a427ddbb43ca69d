package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate fetches, caches and applies robots.txt per host.
type RobotsGate struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsGate creates a gate that uses fetcher for robots.txt requests.
func NewRobotsGate(fetcher *Fetcher, logger *slog.Logger) *RobotsGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsGate{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether agent may fetch targetURL. Missing or unreadable
// robots.txt files allow everything.
func (r *RobotsGate) Allowed(ctx context.Context, targetURL, agent string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	data, err := r.load(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, defaulting to allow", "host", u.Host, "error", err)
		return true
	}
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, agent)
}

func (r *RobotsGate) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data, nil
	}

	page, err := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		r.cache[origin] = nil
		return nil, err
	}
	if page.Error != "" {
		r.cache[origin] = nil
		return nil, fmt.Errorf("fetch error: %s", page.Error)
	}
	if page.StatusCode >= 400 {
		r.cache[origin] = nil
		return nil, nil
	}

	data, err := robotstxt.FromBytes(page.Body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("parse error: %w", err)
	}
	r.cache[origin] = data
	return data, nil
}
