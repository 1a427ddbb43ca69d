// Package storage persists the outcome of every processed spreadsheet row.
package storage

import (
	"context"
	"time"
)

// Row statuses.
const (
	StatusAccepted = "accepted"
	StatusFailed   = "failed"
)

// RowRecord is the outcome of one spreadsheet row within a batch run.
type RowRecord struct {
	ID              string         `json:"id"`
	RunID           string         `json:"run_id"`
	Row             int            `json:"row"` // 1-based, as shown to users
	Topic           string         `json:"topic"`
	Title           string         `json:"title"`
	Model           string         `json:"model"`
	Status          string         `json:"status"`
	FailureKind     string         `json:"failure_kind,omitempty"`
	Error           string         `json:"error,omitempty"`
	TargetWords     int            `json:"target_words"`
	WordCount       int            `json:"word_count"`
	Attempts        int            `json:"attempts"`
	MissingKeywords []string       `json:"missing_keywords,omitempty"`
	Keywords        []KeywordCount `json:"keywords,omitempty"`
	Sources         int            `json:"sources"`
	File            string         `json:"file,omitempty"`
	Duration        time.Duration  `json:"duration"`
	CreatedAt       time.Time      `json:"created_at"`
}

// KeywordCount is how often a keyword occurs in the final article, against
// the repetition the prompt asked for.
type KeywordCount struct {
	Keyword   string `json:"keyword"`
	Secondary bool   `json:"secondary,omitempty"`
	Count     int    `json:"count"`
	Want      int    `json:"want"`
}

// Underused reports whether the keyword occurs fewer times than asked for.
func (k KeywordCount) Underused() bool {
	return k.Count < k.Want
}

// Accepted reports whether the row produced a document.
func (r *RowRecord) Accepted() bool {
	return r.Status == StatusAccepted
}

// UnderusedKeywords returns the keywords that occur fewer times than the
// prompt asked for, in record order.
func (r *RowRecord) UnderusedKeywords() []string {
	var out []string
	for _, k := range r.Keywords {
		if k.Underused() {
			out = append(out, k.Keyword)
		}
	}
	return out
}

// Filter allows querying for specific RowRecords.
type Filter struct {
	RunID  string
	Status string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying row records.
type Backend interface {
	Save(ctx context.Context, record *RowRecord) error
	Query(ctx context.Context, filter Filter) ([]*RowRecord, error)
	Close() error
}

// Discard is a Backend that keeps nothing.
type Discard struct{}

func (Discard) Save(context.Context, *RowRecord) error { return nil }

func (Discard) Query(context.Context, Filter) ([]*RowRecord, error) { return nil, nil }

func (Discard) Close() error { return nil }
