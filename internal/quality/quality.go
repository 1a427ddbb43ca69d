// Package quality runs the bounded generate-measure-revise loop that turns a
// request into an accepted article.
package quality

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/quill/internal/analyzer"
	"github.com/FranksOps/quill/internal/article"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/prompt"
)

const (
	// AttemptLimit caps MaxAttempts.
	AttemptLimit            = 3
	DefaultMaxAttempts      = AttemptLimit
	DefaultTolerancePercent = 10
)

// Status is the state of a request in the loop.
type Status int

const (
	StatusPending Status = iota
	StatusAttempting
	StatusAccepted
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAttempting:
		return "attempting"
	case StatusAccepted:
		return "accepted"
	case StatusExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Attempt is the record of one pass through the loop.
type Attempt struct {
	Number            int
	PromptText        string
	RawOutput         string
	WordCount         int
	MissingPrimary    []string
	MissingSecondary  []string
	StructurallyValid bool
	Accepted          bool
	ShrinkCalls       int
	ExpandCalls       int
	Err               error
}

// Outcome is the result of running the loop for one request.
type Outcome struct {
	Status    Status
	Article   string
	WordCount int
	Lower     int
	Upper     int
	Attempts  []Attempt
}

// Accepted reports whether an attempt produced an article.
func (o *Outcome) Accepted() bool {
	return o != nil && o.Status == StatusAccepted
}

// Last returns the final attempt, or nil if none ran.
func (o *Outcome) Last() *Attempt {
	if o == nil || len(o.Attempts) == 0 {
		return nil
	}
	return &o.Attempts[len(o.Attempts)-1]
}

// Limits returns the inclusive word-count window for target. Integer
// arithmetic keeps the bounds exact: 10% tolerance on 1000 gives 900..1100.
func Limits(target, tolerancePercent int) (lower, upper int) {
	return target * (100 - tolerancePercent) / 100, target * (100 + tolerancePercent) / 100
}

// Config controls the loop.
type Config struct {
	Model            string
	MaxAttempts      int
	TolerancePercent int
}

// Controller drives requests through the loop using a generation client.
type Controller struct {
	client llm.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Controller. Zero config values take the defaults and
// MaxAttempts is capped at AttemptLimit.
func New(client llm.Client, cfg Config, logger *slog.Logger) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxAttempts > AttemptLimit {
		cfg.MaxAttempts = AttemptLimit
	}
	if cfg.TolerancePercent <= 0 || cfg.TolerancePercent >= 100 {
		cfg.TolerancePercent = DefaultTolerancePercent
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{client: client, cfg: cfg, logger: logger}
}

// Model returns the model identifier used for every call.
func (c *Controller) Model() string {
	return c.cfg.Model
}

// Run generates an article for req. Exhausting every attempt is reported in
// the Outcome, not as an error; the only error returned is ctx's.
func (c *Controller) Run(ctx context.Context, req article.Request, crawled string) (*Outcome, error) {
	lower, upper := Limits(req.TargetWordCount, c.cfg.TolerancePercent)
	out := &Outcome{Status: StatusPending, Lower: lower, Upper: upper}
	log := c.logger.With("row", req.RowIndex+1)

	for k := 1; k <= c.cfg.MaxAttempts; k++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Status = StatusAttempting
		log.Info("generating article", "attempt", k, "model", c.cfg.Model)

		att := c.attempt(ctx, log, k, req, crawled, lower, upper)
		out.Attempts = append(out.Attempts, att)

		switch {
		case att.Accepted:
			metrics.RecordAttempt("accepted")
			out.Status = StatusAccepted
			out.Article = att.RawOutput
			out.WordCount = att.WordCount
			log.Info("article accepted", "attempt", k, "words", att.WordCount)
			return out, nil
		case att.Err != nil:
			metrics.RecordAttempt("failed")
		default:
			metrics.RecordAttempt("rejected")
			log.Warn("article needs another attempt",
				"attempt", k,
				"words", att.WordCount,
				"lower", lower,
				"upper", upper,
				"missing_primary", att.MissingPrimary,
				"missing_secondary", att.MissingSecondary,
			)
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.Status = StatusExhausted
	log.Error("article not generated", "attempts", len(out.Attempts))
	return out, nil
}

func (c *Controller) attempt(ctx context.Context, log *slog.Logger, k int, req article.Request, crawled string, lower, upper int) Attempt {
	p := prompt.Build(req, crawled)
	att := Attempt{Number: k, PromptText: p.User}

	text, err := c.call(ctx, "draft", p)
	if err != nil {
		att.Err = err
		log.Error("generation failed", "attempt", k, "error", err)
		return att
	}

	words := analyzer.WordCount(text)
	missingPrimary := analyzer.MissingKeywords(req.PrimaryKeywords, text)
	missingSecondary := analyzer.MissingKeywords(req.SecondaryKeywords, text)

	if words > upper {
		att.ShrinkCalls++
		log.Info("word count above limit, shrinking", "attempt", k, "words", words, "upper", upper)
		revised, err := c.call(ctx, "shrink", prompt.Shrink(text, req.TargetWordCount))
		if err != nil {
			log.Warn("shrink revision failed, keeping draft", "attempt", k, "error", err)
		} else {
			text = revised
			words = analyzer.WordCount(text)
			log.Info("word count after shrink", "attempt", k, "words", words)
		}
	}

	if words < lower {
		att.ExpandCalls++
		log.Info("word count below limit, expanding", "attempt", k, "words", words, "lower", lower)
		revised, err := c.call(ctx, "expand", prompt.Expand(text, req.TargetWordCount, missingPrimary, missingSecondary))
		if err != nil {
			att.Err = err
			att.RawOutput = text
			att.WordCount = words
			log.Error("expand revision failed", "attempt", k, "error", err)
			return att
		}
		text = revised
		words = analyzer.WordCount(text)
		log.Info("word count after expand", "attempt", k, "words", words)
	}

	att.RawOutput = text
	att.WordCount = words
	if line, ok := analyzer.CheckStructure(text); !ok {
		log.Warn("article structure may be incomplete", "attempt", k, "line", line)
	} else {
		att.StructurallyValid = true
	}

	att.MissingPrimary = analyzer.MissingKeywords(req.PrimaryKeywords, text)
	att.MissingSecondary = analyzer.MissingKeywords(req.SecondaryKeywords, text)
	att.Accepted = len(att.MissingPrimary) == 0 &&
		len(att.MissingSecondary) == 0 &&
		lower <= words && words <= upper
	return att
}

func (c *Controller) call(ctx context.Context, kind string, p llm.Prompt) (string, error) {
	start := time.Now()
	text, err := c.client.Complete(ctx, c.cfg.Model, p)
	metrics.RecordGeneration(kind, time.Since(start), err)
	return text, err
}
