package serp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/quill/pkg/httpclient"
)

func init() {
	retryDelay = time.Millisecond
}

func testClient(t *testing.T) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	return c
}

type fakeProvider struct {
	calls   atomic.Int32
	errs    []error
	results []Result
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, _ string, _ int) ([]Result, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	return f.results, nil
}

func urls(ss ...string) []Result {
	out := make([]Result, len(ss))
	for i, s := range ss {
		out[i] = Result{URL: s, Rank: i + 1}
	}
	return out
}

func TestCollect_FiltersAndLimits(t *testing.T) {
	p := &fakeProvider{results: urls(
		"https://a.test/1",
		"https://www.google.com/aclk?sa=l&ai=x",
		"https://a.test/1",
		"https://b.test/sponsored/post",
		"https://c.test/",
		"https://d.test/",
		"https://e.test/",
		"https://f.test/",
		"https://g.test/",
	)}

	got := Collect(context.Background(), p, "اصفهان", CollectOptions{}, nil)
	want := []string{"https://a.test/1", "https://c.test/", "https://d.test/", "https://e.test/", "https://f.test/"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect() = %v, want %v", got, want)
	}
}

func TestCollect_MaxExamined(t *testing.T) {
	p := &fakeProvider{results: urls(
		"https://www.google.com/aclk?1",
		"https://www.google.com/aclk?2",
		"https://a.test/",
		"https://b.test/",
	)}
	got := Collect(context.Background(), p, "q", CollectOptions{MaxLinks: 5, MaxExamined: 3}, nil)
	if want := []string{"https://a.test/"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Collect() = %v, want %v", got, want)
	}
}

func TestCollect_RetriesTransient(t *testing.T) {
	p := &fakeProvider{
		errs:    []error{&StatusError{Provider: "fake", StatusCode: http.StatusTooManyRequests}, &StatusError{Provider: "fake", StatusCode: 502}},
		results: urls("https://a.test/"),
	}
	got := Collect(context.Background(), p, "q", CollectOptions{}, nil)
	if len(got) != 1 {
		t.Errorf("expected 1 link after retries, got %v", got)
	}
	if n := p.calls.Load(); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestCollect_PermanentErrorYieldsNothing(t *testing.T) {
	p := &fakeProvider{errs: []error{&StatusError{Provider: "fake", StatusCode: http.StatusForbidden}}}
	got := Collect(context.Background(), p, "q", CollectOptions{}, nil)
	if len(got) != 0 {
		t.Errorf("expected no links, got %v", got)
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("expected a single call for a permanent error, got %d", n)
	}

	p = &fakeProvider{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}
	if got := Collect(context.Background(), p, "q", CollectOptions{}, nil); len(got) != 0 {
		t.Errorf("expected no links, got %v", got)
	}
}

func TestGoogleScrape_Search(t *testing.T) {
	page := `<html><body><div id="search">
<a href="/url?q=https://first.test/page&amp;sa=U"><h3>First</h3></a>
<a href="/aclk?sa=l&amp;ai=ad"><h3>Ad</h3></a>
<a href="https://second.test/"><h3>Second</h3></a>
<a href="https://maps.google.com/"><h3>Maps</h3></a>
<a href="https://nav.test/">no heading</a>
<a href="/search?q=more">More</a>
</div></body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "سفر به شیراز" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("hl"); got != "fa" {
			t.Errorf("unexpected language %q", got)
		}
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()

	g := NewGoogleScrape(testClient(t), "fa", ts.URL, nil)
	results, err := g.Search(context.Background(), "سفر به شیراز", 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []Result{
		{URL: "https://first.test/page", Title: "First", Rank: 1},
		{URL: "https://www.google.com/aclk?sa=l&ai=ad", Title: "Ad", Rank: 2},
		{URL: "https://second.test/", Title: "Second", Rank: 3},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Search() = %+v, want %+v", results, want)
	}

	links := Collect(context.Background(), g, "سفر به شیراز", CollectOptions{}, nil)
	if want := []string{"https://first.test/page", "https://second.test/"}; !reflect.DeepEqual(links, want) {
		t.Errorf("Collect() = %v, want %v", links, want)
	}
}

func TestGoogleScrape_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	g := NewGoogleScrape(testClient(t), "", ts.URL, nil)
	_, err := g.Search(context.Background(), "q", 10)
	var se *StatusError
	if !errors.As(err, &se) || !se.Temporary() {
		t.Fatalf("expected temporary StatusError, got %v", err)
	}
}

func TestCustomSearch_Paging(t *testing.T) {
	var pages atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx" {
			t.Errorf("missing credentials: %v", q)
		}
		start := q.Get("start")
		w.Header().Set("Content-Type", "application/json")
		switch start {
		case "1":
			fmt.Fprint(w, `{"items":[`)
			for i := 1; i <= 10; i++ {
				if i > 1 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"title":"t%d","link":"https://r%d.test/"}`, i, i)
			}
			fmt.Fprint(w, `]}`)
		case "11":
			fmt.Fprint(w, `{"items":[{"title":"t11","link":"https://r11.test/"},{"title":"t12","link":"https://r12.test/"}]}`)
		default:
			t.Errorf("unexpected start %s", start)
		}
	}))
	defer ts.Close()

	c := NewCustomSearch(testClient(t), "k", "cx", "fa", ts.URL)
	results, err := c.Search(context.Background(), "q", 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 12 {
		t.Fatalf("expected 12 results, got %d", len(results))
	}
	if results[11].URL != "https://r12.test/" || results[11].Rank != 12 {
		t.Errorf("unexpected last result %+v", results[11])
	}
	if n := pages.Load(); n != 2 {
		t.Errorf("expected 2 pages, got %d", n)
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	target := "https://blog.test/مطلب"
	page := `<html><body>
<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=` + url.QueryEscape(target) + `&amp;rut=abc">مطلب</a></div>
<div class="result"><a class="result__a" href="https://direct.test/">Direct</a></div>
<div class="result"><a class="result__a" href="javascript:void(0)">Broken</a></div>
</body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()

	d := NewDuckDuckGo(testClient(t), ts.URL)
	results, err := d.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []Result{
		{URL: target, Title: "مطلب", Rank: 1},
		{URL: "https://direct.test/", Title: "Direct", Rank: 2},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Search() = %+v, want %+v", results, want)
	}
}

func TestNew(t *testing.T) {
	client := testClient(t)
	tests := []struct {
		cfg     Config
		name    string
		wantErr bool
	}{
		{cfg: Config{}, name: "google"},
		{cfg: Config{Provider: "duckduckgo"}, name: "duckduckgo"},
		{cfg: Config{Provider: "customsearch", GoogleAPIKey: "k", GoogleCX: "c"}, name: "customsearch"},
		{cfg: Config{Provider: "customsearch"}, wantErr: true},
		{cfg: Config{Provider: "static", URLs: []string{"https://a.test"}}, name: "static"},
		{cfg: Config{Provider: "bing"}, wantErr: true},
		{cfg: Config{Provider: "google_api", GoogleAPIKey: "k", GoogleCX: "c"}, wantErr: true},
		{cfg: Config{Provider: "ddg"}, wantErr: true},
	}
	for _, tt := range tests {
		p, err := New(tt.cfg, client, nil)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%+v): expected error", tt.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%+v): %v", tt.cfg, err)
		}
		if p.Name() != tt.name {
			t.Errorf("New(%+v).Name() = %q, want %q", tt.cfg, p.Name(), tt.name)
		}
	}

	if _, err := New(Config{Provider: "bing"}, client, nil); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
