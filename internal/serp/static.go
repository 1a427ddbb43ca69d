package serp

import "context"

// Static returns a fixed list of URLs for every query.
type Static struct {
	urls []string
}

// NewStatic returns a provider answering with urls.
func NewStatic(urls ...string) *Static {
	return &Static{urls: append([]string(nil), urls...)}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Search(_ context.Context, _ string, limit int) ([]Result, error) {
	var results []Result
	for i, u := range s.urls {
		if limit > 0 && i >= limit {
			break
		}
		results = append(results, Result{URL: u, Rank: i + 1})
	}
	return results, nil
}
