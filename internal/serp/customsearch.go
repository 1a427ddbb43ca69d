package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/quill/pkg/httpclient"
)

const (
	customSearchURL     = "https://www.googleapis.com/customsearch/v1"
	customSearchPage    = 10
	customSearchMaxSpan = 100
)

// CustomSearch queries the Google Custom Search JSON API.
type CustomSearch struct {
	client   *httpclient.Client
	apiKey   string
	cx       string
	language string
	endpoint string
}

// NewCustomSearch returns a Custom Search provider. An empty endpoint uses
// the public API.
func NewCustomSearch(client *httpclient.Client, apiKey, cx, language, endpoint string) *CustomSearch {
	if endpoint == "" {
		endpoint = customSearchURL
	}
	return &CustomSearch{client: client, apiKey: apiKey, cx: cx, language: language, endpoint: endpoint}
}

func (c *CustomSearch) Name() string { return "customsearch" }

type customSearchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

// Search pages through the API ten results at a time until limit results
// are gathered or the API runs dry.
func (c *CustomSearch) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}
	limit = min(limit, customSearchMaxSpan)

	var results []Result
	for start := 1; len(results) < limit; start += customSearchPage {
		q := url.Values{}
		q.Set("key", c.apiKey)
		q.Set("cx", c.cx)
		q.Set("q", query)
		q.Set("start", strconv.Itoa(start))
		q.Set("num", strconv.Itoa(min(customSearchPage, limit-len(results))))
		if c.language != "" {
			q.Set("lr", "lang_"+c.language)
		}

		sep := "?"
		if strings.Contains(c.endpoint, "?") {
			sep = "&"
		}
		body, err := get(ctx, c.client, c.Name(), c.endpoint+sep+q.Encode(), nil)
		if err != nil {
			return results, err
		}

		var page customSearchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return results, fmt.Errorf("customsearch: decode response: %w", err)
		}
		if len(page.Items) == 0 {
			break
		}
		for _, item := range page.Items {
			if len(results) >= limit {
				break
			}
			results = append(results, Result{URL: item.Link, Title: item.Title, Rank: len(results) + 1})
		}
		if len(page.Items) < customSearchPage {
			break
		}
	}
	return results, nil
}
