package serp

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/quill/pkg/httpclient"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the JavaScript-free DuckDuckGo results page.
type DuckDuckGo struct {
	client   *httpclient.Client
	endpoint string
}

// NewDuckDuckGo returns a DuckDuckGo provider.
func NewDuckDuckGo(client *httpclient.Client, endpoint string) *DuckDuckGo {
	if endpoint == "" {
		endpoint = duckDuckGoURL
	}
	return &DuckDuckGo{client: client, endpoint: endpoint}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}
	body, err := get(ctx, d.client, d.Name(), d.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}

	var results []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		target := duckDuckGoTarget(href)
		if !isWebURL(target) {
			return true
		}
		results = append(results, Result{
			URL:   target,
			Title: strings.TrimSpace(a.Text()),
			Rank:  len(results) + 1,
		})
		return true
	})
	return results, nil
}

// duckDuckGoTarget unwraps /l/?uddg= redirect links.
func duckDuckGoTarget(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
