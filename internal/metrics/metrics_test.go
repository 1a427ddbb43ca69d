package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8898, nil)
	time.Sleep(100 * time.Millisecond)
	defer srv.Stop(context.Background())

	RecordFetch("example.com", 200, "", 11, time.Second)

	resp, err := http.Get("http://localhost:8898/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	if !strings.Contains(output, "quill_fetch_requests_total") {
		t.Errorf("expected quill_fetch_requests_total metric")
	}
	if !strings.Contains(output, `quill_fetch_bytes_total{domain="example.com"}`) {
		t.Errorf("expected quill_fetch_bytes_total for example.com")
	}
}

func TestHandlerExposesGenerationMetrics(t *testing.T) {
	RecordGeneration("draft", 2*time.Second, nil)
	RecordGeneration("expand", time.Second, errors.New("boom"))
	RecordAttempt("accepted")
	RecordRow("exhausted")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	output := rec.Body.String()

	for _, want := range []string{
		`quill_generation_calls_total{kind="draft",result="ok"}`,
		`quill_generation_calls_total{kind="expand",result="error"}`,
		`quill_generation_attempts_total{outcome="accepted"}`,
		`quill_rows_total{status="exhausted"}`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestStopNilServer(t *testing.T) {
	var s *Server
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
