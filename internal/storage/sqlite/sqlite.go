package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/quill/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
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
	failure_kind TEXT,
	error TEXT,
	target_words INTEGER NOT NULL,
	word_count INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	missing_keywords TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	sources INTEGER NOT NULL,
	file TEXT,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS row_records_run_idx ON row_records (run_id);
`

const columns = `id, run_id, row_number, topic, title, model, status, failure_kind, error, target_words, word_count, attempts, missing_keywords, keywords, sources, file, duration_ms, created_at`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.RowRecord) error {
	missing, err := json.Marshal(r.MissingKeywords)
	if err != nil {
		return fmt.Errorf("sqlite: encode keywords: %w", err)
	}
	counts, err := json.Marshal(r.Keywords)
	if err != nil {
		return fmt.Errorf("sqlite: encode keyword counts: %w", err)
	}

	query := `INSERT INTO row_records (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = b.db.ExecContext(ctx, query,
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
		string(missing),
		string(counts),
		r.Sources,
		r.File,
		r.Duration.Milliseconds(),
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RowRecord, error) {
	query := `SELECT ` + columns + ` FROM row_records WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC, row_number DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var records []*storage.RowRecord
	for rows.Next() {
		var (
			r          storage.RowRecord
			missing    string
			counts     string
			durationMs int64
		)

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Row, &r.Topic, &r.Title, &r.Model, &r.Status, &r.FailureKind, &r.Error,
			&r.TargetWords, &r.WordCount, &r.Attempts, &missing, &counts, &r.Sources, &r.File, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(missing), &r.MissingKeywords); err != nil {
			return nil, fmt.Errorf("sqlite: decode keywords: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &r.Keywords); err != nil {
			return nil, fmt.Errorf("sqlite: decode keyword counts: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
