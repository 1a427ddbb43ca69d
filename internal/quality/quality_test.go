package quality

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/FranksOps/quill/internal/analyzer"
	"github.com/FranksOps/quill/internal/article"
	"github.com/FranksOps/quill/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// text builds an article of exactly n words that contains every keyword.
func text(t *testing.T, n int, keywords ...string) string {
	t.Helper()
	body := strings.Join(keywords, " ")
	have := analyzer.WordCount(body)
	if have > n {
		t.Fatalf("keywords alone exceed %d words", n)
	}
	parts := []string{"## عنوان", body}
	for i := have + 1; i < n; i++ {
		parts = append(parts, "کلمه")
	}
	out := strings.Join(parts, " ") + "."
	if got := analyzer.WordCount(out); got != n {
		t.Fatalf("helper produced %d words, want %d", got, n)
	}
	return out
}

func request() article.Request {
	return article.Request{
		RowIndex:          0,
		Topic:             "شیراز",
		Type:              article.Generic,
		TargetWordCount:   100,
		PrimaryKeywords:   []string{"شیراز"},
		SecondaryKeywords: []string{"حافظیه"},
	}
}

func assertBounds(t *testing.T, out *Outcome) {
	t.Helper()
	if len(out.Attempts) > DefaultMaxAttempts {
		t.Errorf("ran %d attempts", len(out.Attempts))
	}
	for _, a := range out.Attempts {
		if a.ShrinkCalls > 1 || a.ExpandCalls > 1 {
			t.Errorf("attempt %d made %d shrink and %d expand calls", a.Number, a.ShrinkCalls, a.ExpandCalls)
		}
	}
}

func TestLimits(t *testing.T) {
	tests := []struct {
		target, pct, lower, upper int
	}{
		{1000, 10, 900, 1100},
		{2001, 10, 1800, 2201},
		{7, 10, 6, 7},
		{100, 20, 80, 120},
	}
	for _, tt := range tests {
		lower, upper := Limits(tt.target, tt.pct)
		if lower != tt.lower || upper != tt.upper {
			t.Errorf("Limits(%d, %d) = (%d, %d), want (%d, %d)", tt.target, tt.pct, lower, upper, tt.lower, tt.upper)
		}
	}
}

func TestRunAcceptsFirstDraft(t *testing.T) {
	client := llm.NewScripted(llm.Reply{Text: text(t, 100, "شیراز", "حافظیه")})
	c := New(client, Config{Model: "test-model"}, quietLogger())

	out, err := c.Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted() || out.WordCount != 100 || len(out.Attempts) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !out.Attempts[0].StructurallyValid {
		t.Errorf("expected structurally valid draft")
	}
	calls := client.Calls()
	if len(calls) != 1 || calls[0].Model != "test-model" {
		t.Errorf("unexpected calls %+v", calls)
	}
	assertBounds(t, out)
}

func TestRunShrinksLongDraft(t *testing.T) {
	client := llm.NewScripted(
		llm.Reply{Text: text(t, 200, "شیراز", "حافظیه")},
		llm.Reply{Text: text(t, 105, "شیراز", "حافظیه")},
	)
	out, err := New(client, Config{}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted() || out.WordCount != 105 {
		t.Fatalf("expected shrunk article to be accepted, got %+v", out)
	}
	if a := out.Attempts[0]; a.ShrinkCalls != 1 || a.ExpandCalls != 0 {
		t.Errorf("unexpected revision counts %+v", a)
	}
	if !strings.Contains(client.Calls()[1].Prompt.User, "کاهش یابد") {
		t.Errorf("second call should be a shrink prompt")
	}
	assertBounds(t, out)
}

func TestRunExpandsShortDraftWithMissingKeywords(t *testing.T) {
	client := llm.NewScripted(
		llm.Reply{Text: text(t, 40, "شیراز")},
		llm.Reply{Text: text(t, 95, "شیراز", "حافظیه")},
	)
	out, err := New(client, Config{}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted() {
		t.Fatalf("expected acceptance after expand, got %+v", out)
	}
	expand := client.Calls()[1].Prompt.User
	if !strings.Contains(expand, "کلمات کلیدی فرعی: حافظیه") {
		t.Errorf("expand prompt should list the missing secondary keyword")
	}
	if strings.Contains(expand, "کلمات کلیدی اصلی:") {
		t.Errorf("expand prompt should not list covered primary keywords")
	}
	assertBounds(t, out)
}

func TestRunShrinkThenExpandInOneAttempt(t *testing.T) {
	client := llm.NewScripted(
		llm.Reply{Text: text(t, 300, "شیراز", "حافظیه")},
		llm.Reply{Text: text(t, 20, "شیراز", "حافظیه")},
		llm.Reply{Text: text(t, 100, "شیراز", "حافظیه")},
	)
	out, err := New(client, Config{}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted() || len(out.Attempts) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if a := out.Attempts[0]; a.ShrinkCalls != 1 || a.ExpandCalls != 1 {
		t.Errorf("expected one shrink and one expand, got %+v", a)
	}
	assertBounds(t, out)
}

func TestRunExhaustsAttempts(t *testing.T) {
	short := text(t, 30, "شیراز")
	var replies []llm.Reply
	for i := 0; i < 6; i++ {
		replies = append(replies, llm.Reply{Text: short})
	}
	client := llm.NewScripted(replies...)

	out, err := New(client, Config{}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("exhaustion must not be an error: %v", err)
	}
	if out.Status != StatusExhausted || out.Article != "" {
		t.Fatalf("expected exhausted outcome, got %+v", out)
	}
	if len(out.Attempts) != 3 || len(client.Calls()) != 6 {
		t.Errorf("expected 3 attempts and 6 calls, got %d and %d", len(out.Attempts), len(client.Calls()))
	}
	if got := out.Last().MissingSecondary; len(got) != 1 || got[0] != "حافظیه" {
		t.Errorf("unexpected missing secondary %v", got)
	}
	assertBounds(t, out)
}

func TestRunCapsAttempts(t *testing.T) {
	client := llm.NewScripted()
	c := New(client, Config{MaxAttempts: 10}, quietLogger())

	out, err := c.Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Attempts) != AttemptLimit || len(client.Calls()) != AttemptLimit {
		t.Errorf("expected %d attempts and calls, got %d and %d", AttemptLimit, len(out.Attempts), len(client.Calls()))
	}
}

func TestRunRecoversFromAdapterError(t *testing.T) {
	client := llm.NewScripted(
		llm.Reply{Err: llm.ErrQuota},
		llm.Reply{Text: text(t, 100, "شیراز", "حافظیه")},
	)
	out, err := New(client, Config{}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted() || len(out.Attempts) != 2 {
		t.Fatalf("expected acceptance on attempt 2, got %+v", out)
	}
	if !errors.Is(out.Attempts[0].Err, llm.ErrQuota) || out.Attempts[0].RawOutput != "" {
		t.Errorf("failed attempt should record the error and no output: %+v", out.Attempts[0])
	}
}

func TestRunShrinkFailureKeepsDraft(t *testing.T) {
	long := text(t, 200, "شیراز", "حافظیه")
	client := llm.NewScripted(
		llm.Reply{Text: long},
		llm.Reply{Err: llm.ErrTimeout},
	)
	out, err := New(client, Config{MaxAttempts: 1}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := out.Attempts[0]
	if a.Err != nil || a.RawOutput != long || a.WordCount != 200 {
		t.Errorf("expected unrevised draft to be kept, got %+v", a)
	}
	if a.ExpandCalls != 0 || out.Status != StatusExhausted {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestRunExpandFailureFailsAttempt(t *testing.T) {
	client := llm.NewScripted(
		llm.Reply{Text: text(t, 10, "شیراز", "حافظیه")},
		llm.Reply{Err: llm.ErrUnavailable},
	)
	out, err := New(client, Config{MaxAttempts: 1}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a := out.Attempts[0]; !errors.Is(a.Err, llm.ErrUnavailable) || a.Accepted {
		t.Errorf("expected failed attempt, got %+v", a)
	}
}

func TestRunRechecksKeywordsAfterRevision(t *testing.T) {
	client := llm.NewScripted(
		llm.Reply{Text: text(t, 200, "شیراز", "حافظیه")},
		llm.Reply{Text: text(t, 100, "شیراز")},
	)
	out, err := New(client, Config{MaxAttempts: 1}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Accepted() {
		t.Fatalf("a revision that drops a keyword must not be accepted")
	}
	if got := out.Attempts[0].MissingSecondary; len(got) != 1 {
		t.Errorf("expected حافظیه to be reported missing, got %v", got)
	}
}

func TestRunAdvisoryStructure(t *testing.T) {
	draft := "### بدون H2 " + text(t, 98, "شیراز", "حافظیه")
	client := llm.NewScripted(llm.Reply{Text: draft})
	out, err := New(client, Config{}, quietLogger()).Run(context.Background(), request(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted() || out.Attempts[0].StructurallyValid {
		t.Errorf("structural failure should warn but still accept: %+v", out.Attempts[0])
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := llm.NewScripted(llm.Reply{Text: "x"})
	out, err := New(client, Config{}, quietLogger()).Run(ctx, request(), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out.Accepted() || len(client.Calls()) != 0 {
		t.Errorf("no calls should be made after cancellation")
	}
}
