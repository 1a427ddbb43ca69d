// Package research assembles the web context handed to the article prompt.
package research

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FranksOps/quill/internal/serp"
)

// TextFetcher returns the visible text of a page, or "" when it cannot be
// used.
type TextFetcher interface {
	Text(ctx context.Context, url string) string
}

// Source is one page that contributed text.
type Source struct {
	URL  string
	Text string
}

// Context is the crawled material for one topic.
type Context struct {
	Sources []Source
	Text    string
}

var rawURL = regexp.MustCompile(`https?://\S+`)

const sourceLabel = "منبع: "

// Empty reports whether nothing was gathered.
func (c Context) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Preview returns at most n runes of the text, marked with "..." when cut.
func (c Context) Preview(n int) string {
	r := []rune(c.Text)
	if n < 0 || len(r) <= n {
		return c.Text
	}
	return string(r[:n]) + "..."
}

// Gatherer searches for a topic and fetches the top results.
type Gatherer struct {
	provider serp.Provider
	fetcher  TextFetcher
	opts     serp.CollectOptions
	logger   *slog.Logger
}

// NewGatherer returns a Gatherer. A nil provider yields empty contexts.
func NewGatherer(provider serp.Provider, fetcher TextFetcher, opts serp.CollectOptions, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{provider: provider, fetcher: fetcher, opts: opts, logger: logger}
}

// Gather collects links for topic, fetches them in rank order and joins
// the non-empty texts. Raw URLs are stripped from the result. Failures
// only shrink the context.
func (g *Gatherer) Gather(ctx context.Context, topic string) Context {
	if g == nil || g.provider == nil || g.fetcher == nil {
		return Context{}
	}

	links := serp.Collect(ctx, g.provider, topic, g.opts, g.logger)

	var (
		out   Context
		parts []string
	)
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		text := strings.TrimSpace(g.fetcher.Text(ctx, link))
		if text == "" {
			continue
		}
		out.Sources = append(out.Sources, Source{URL: link, Text: text})
		parts = append(parts, sourceLabel+link+"\n"+text)
	}
	out.Text = rawURL.ReplaceAllString(strings.Join(parts, "\n\n"), "")

	g.logger.Info("gathered research", "topic", topic, "links", len(links), "sources", len(out.Sources), "preview", out.Preview(500))
	return out
}
