// Package pipeline turns a spreadsheet into generated documents: research,
// quality-controlled generation, rendering and persistence per row.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/quill/internal/analyzer"
	"github.com/FranksOps/quill/internal/article"
	"github.com/FranksOps/quill/internal/auth"
	"github.com/FranksOps/quill/internal/docx"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/quality"
	"github.com/FranksOps/quill/internal/research"
	"github.com/FranksOps/quill/internal/sheet"
	"github.com/FranksOps/quill/internal/storage"
)

// Row failure kinds.
const (
	FailureInvalidRow   = "invalid_row"
	FailureExhausted    = "exhausted"
	FailureRenderFailed = "render_failed"
)

// Generator produces an article for a request.
type Generator interface {
	Run(ctx context.Context, req article.Request, crawled string) (*quality.Outcome, error)
	Model() string
}

// Researcher gathers web context for a topic.
type Researcher interface {
	Gather(ctx context.Context, topic string) research.Context
}

// Config tunes a Pipeline.
type Config struct {
	OutputDir string
	Workers   int
	Columns   sheet.Columns
}

// RowResult is the outcome of one spreadsheet row.
type RowResult struct {
	Row         int // 1-based
	Title       string
	Accepted    bool
	FailureKind string
	Err         error
	File        string
	Sources     int
	Outcome     *quality.Outcome
	Duration    time.Duration
	Record      *storage.RowRecord
}

// Result is the outcome of a batch.
type Result struct {
	RunID string
	Model string
	Rows  []RowResult
}

// Files returns the paths of every rendered document in row order.
func (r *Result) Files() []string {
	var files []string
	for _, row := range r.Rows {
		if row.Accepted && row.File != "" {
			files = append(files, row.File)
		}
	}
	return files
}

// Records returns the row records in row order.
func (r *Result) Records() []*storage.RowRecord {
	out := make([]*storage.RowRecord, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Record != nil {
			out = append(out, row.Record)
		}
	}
	return out
}

// Failed returns the rows that produced no document.
func (r *Result) Failed() []RowResult {
	var out []RowResult
	for _, row := range r.Rows {
		if !row.Accepted {
			out = append(out, row)
		}
	}
	return out
}

// Pipeline runs batches. It holds no per-batch state and can be shared.
type Pipeline struct {
	gen      Generator
	research Researcher
	store    storage.Backend
	cfg      Config
	logger   *slog.Logger
}

// New creates a Pipeline. A nil store discards row records; a nil
// researcher runs without web context.
func New(gen Generator, researcher Researcher, store storage.Backend, cfg Config, logger *slog.Logger) *Pipeline {
	if store == nil {
		store = storage.Discard{}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{gen: gen, research: researcher, store: store, cfg: cfg, logger: logger}
}

// Run processes every row of table. Missing columns abort the batch before
// any row work; a failing row never stops the others. The only other errors
// are an invalid session, an unusable output directory and ctx's.
func (p *Pipeline) Run(ctx context.Context, session auth.Session, table *sheet.Table) (*Result, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrInvalidSession
	}

	rows, err := table.Requests(p.cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res := &Result{
		RunID: uuid.NewString(),
		Model: p.gen.Model(),
		Rows:  make([]RowResult, len(rows)),
	}
	log := p.logger.With("run", res.RunID, "user", session.User)
	log.Info("batch started", "rows", len(rows), "model", res.Model, "workers", p.cfg.Workers)

	if p.cfg.Workers == 1 {
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			res.Rows[i] = p.processRow(ctx, log, res.RunID, row)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)
		for i, row := range rows {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res.Rows[i] = p.processRow(gctx, log, res.RunID, row)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	log.Info("batch finished", "rows", len(rows), "documents", len(res.Files()), "failed", len(res.Failed()))
	return res, nil
}

func (p *Pipeline) processRow(ctx context.Context, log *slog.Logger, runID string, row sheet.Row) (rr RowResult) {
	start := time.Now()
	req := row.Request
	rr = RowResult{Row: row.Index + 1, Title: req.Title()}
	log = log.With("row", rr.Row)

	defer func() {
		rr.Duration = time.Since(start)
		status := storage.StatusAccepted
		if !rr.Accepted {
			status = rr.FailureKind
		}
		metrics.RecordRow(status)
		rr.Record = p.persist(ctx, log, runID, req, rr)
	}()

	if row.Err != nil {
		rr.FailureKind = FailureInvalidRow
		rr.Err = row.Err
		log.Error("invalid row", "error", row.Err)
		return rr
	}

	log.Info("processing row", "topic", req.Topic, "type", req.Type, "words", req.TargetWordCount)

	var crawled research.Context
	if p.research != nil {
		crawled = p.research.Gather(ctx, req.Topic)
		if crawled.Empty() {
			log.Warn("no research context gathered, generating without sources", "topic", req.Topic)
		}
	}
	rr.Sources = len(crawled.Sources)

	out, err := p.gen.Run(ctx, req, crawled.Text)
	rr.Outcome = out
	if err != nil || !out.Accepted() {
		rr.FailureKind = FailureExhausted
		rr.Err = err
		if rr.Err == nil {
			rr.Err = errors.New("no attempt met the word count and keyword checks")
		}
		log.Error("article not generated", "error", rr.Err)
		return rr
	}

	links := docx.NewLinkMap()
	for _, l := range req.LinkPairs() {
		links.Add(l.Anchor, l.URL)
	}

	path := filepath.Join(p.cfg.OutputDir, FileName(req.Title(), row.Index))
	if err := docx.RenderFile(out.Article, path, links); err != nil {
		rr.FailureKind = FailureRenderFailed
		rr.Err = err
		log.Error("failed to render document", "path", path, "error", err)
		return rr
	}

	rr.Accepted = true
	rr.File = path
	log.Info("document saved", "path", path, "words", out.WordCount)
	return rr
}

func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, runID string, req article.Request, rr RowResult) *storage.RowRecord {
	var file string
	if rr.File != "" {
		file = filepath.Base(rr.File)
	}
	rec := &storage.RowRecord{
		ID:          uuid.NewString(),
		RunID:       runID,
		Row:         rr.Row,
		Topic:       req.Topic,
		Title:       rr.Title,
		Model:       p.gen.Model(),
		Status:      storage.StatusAccepted,
		FailureKind: rr.FailureKind,
		TargetWords: req.TargetWordCount,
		Sources:     rr.Sources,
		File:        file,
		Duration:    rr.Duration,
		CreatedAt:   time.Now().UTC(),
	}
	if !rr.Accepted {
		rec.Status = storage.StatusFailed
	}
	if rr.Err != nil {
		rec.Error = rr.Err.Error()
	}
	if rr.Outcome != nil {
		rec.Attempts = len(rr.Outcome.Attempts)
		if last := rr.Outcome.Last(); last != nil {
			rec.WordCount = last.WordCount
			rec.MissingKeywords = append(append([]string(nil), last.MissingPrimary...), last.MissingSecondary...)
		}
		text := rr.Outcome.Article
		if text == "" && rr.Outcome.Last() != nil {
			text = rr.Outcome.Last().RawOutput
		}
		rec.Keywords = keywordCounts(req, text)
		if under := rec.UnderusedKeywords(); rr.Accepted && len(under) > 0 {
			log.Info("keywords below requested repetition", "keywords", under)
		}
	}

	// A cancelled batch still records what it did.
	if err := p.store.Save(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("failed to persist row record", "error", err)
	}
	return rec
}

// keywordCounts measures each keyword in text against the repetition the
// prompt asks for.
func keywordCounts(req article.Request, text string) []storage.KeywordCount {
	var out []storage.KeywordCount
	for _, hit := range analyzer.Coverage(req.PrimaryKeywords, text) {
		out = append(out, storage.KeywordCount{Keyword: hit.Keyword, Count: hit.Count, Want: article.PrimaryRepetitions})
	}
	for _, hit := range analyzer.Coverage(req.SecondaryKeywords, text) {
		out = append(out, storage.KeywordCount{Keyword: hit.Keyword, Secondary: true, Count: hit.Count, Want: article.SecondaryRepetitions})
	}
	return out
}
