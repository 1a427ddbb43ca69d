package serp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/quill/pkg/httpclient"
)

const googleBaseURL = "https://www.google.com"

// GoogleScrape reads Google's HTML results page through the shared,
// fingerprinted client.
type GoogleScrape struct {
	client   *httpclient.Client
	language string
	baseURL  string
	logger   *slog.Logger
}

// NewGoogleScrape returns a Google scraping provider. An empty baseURL
// targets www.google.com.
func NewGoogleScrape(client *httpclient.Client, language, baseURL string, logger *slog.Logger) *GoogleScrape {
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleScrape{
		client:   client,
		language: language,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

func (g *GoogleScrape) Name() string { return "google" }

// Search performs a search on Google and returns the linked results in
// page order.
func (g *GoogleScrape) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("num", strconv.Itoa(limit))
	if g.language != "" {
		q.Set("hl", g.language)
	}

	body, err := get(ctx, g.client, g.Name(), g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	results, err := parseGoogle(body, limit)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("parsed google results", "query", query, "count", len(results))
	return results, nil
}

func parseGoogle(body []byte, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("google: parse results: %w", err)
	}

	var results []Result
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		target, ok := googleTarget(href, a.Find("h3").Length() > 0)
		if !ok {
			return true
		}
		results = append(results, Result{
			URL:   target,
			Title: strings.TrimSpace(a.Find("h3").First().Text()),
			Rank:  len(results) + 1,
		})
		return true
	})
	return results, nil
}

// googleTarget resolves a results-page href. Redirects through /url are
// decoded and ad clicks are made absolute so they can be recognized later.
// Plain links count only when they wrap a result heading.
func googleTarget(href string, heading bool) (string, bool) {
	switch {
	case strings.HasPrefix(href, "/url?"):
		u, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		target := u.Query().Get("q")
		if target == "" {
			target = u.Query().Get("url")
		}
		return target, isWebURL(target)
	case strings.HasPrefix(href, "/aclk"):
		return googleBaseURL + href, true
	case heading && isWebURL(href):
		u, _ := url.Parse(href)
		return href, !strings.Contains(u.Hostname(), "google.")
	default:
		return "", false
	}
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
