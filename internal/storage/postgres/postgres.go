package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/quill/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS row_records (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	row_number INTEGER NOT NULL,
	topic TEXT NOT NULL,
	title TEXT NOT NULL,
	model TEXT NOT NULL,
	status TEXT NOT NULL,
	failure_kind TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	target_words INTEGER NOT NULL,
	word_count INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	missing_keywords TEXT[] NOT NULL,
	keywords JSONB NOT NULL DEFAULT '[]',
	sources INTEGER NOT NULL,
	file TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS row_records_run_idx ON row_records (run_id);
`

const columns = `id, run_id, row_number, topic, title, model, status, failure_kind, error, target_words, word_count, attempts, missing_keywords, keywords, sources, file, duration_ms, created_at`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.RowRecord) error {
	missing := r.MissingKeywords
	if missing == nil {
		missing = []string{}
	}
	counts, err := json.Marshal(r.Keywords)
	if err != nil {
		return fmt.Errorf("postgres: encode keyword counts: %w", err)
	}

	query := `INSERT INTO row_records (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = b.pool.Exec(ctx, query,
		r.ID,
		r.RunID,
		r.Row,
		r.Topic,
		r.Title,
		r.Model,
		r.Status,
		r.FailureKind,
		r.Error,
		r.TargetWords,
		r.WordCount,
		r.Attempts,
		missing,
		counts,
		r.Sources,
		r.File,
		r.Duration.Milliseconds(),
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RowRecord, error) {
	query := `SELECT ` + columns + ` FROM row_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, filter.Status)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC, row_number DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	var records []*storage.RowRecord
	for rows.Next() {
		var (
			r          storage.RowRecord
			counts     []byte
			durationMs int64
		)

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Row, &r.Topic, &r.Title, &r.Model, &r.Status, &r.FailureKind, &r.Error,
			&r.TargetWords, &r.WordCount, &r.Attempts, &r.MissingKeywords, &counts, &r.Sources, &r.File, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(counts, &r.Keywords); err != nil {
			return nil, fmt.Errorf("postgres: decode keyword counts: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
