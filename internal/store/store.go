// Package store persists upload history in Postgres. It is write-once per
// submission: a row per upload plus a row per failed record, queried back
// for the history view.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ssgtools/tpconsole/internal/config"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

// UploadRecord is one completed submission as read back from the store.
type UploadRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"sessionId"`
	Kind        string    `json:"kind"`
	FileName    string    `json:"fileName"`
	Sheet       string    `json:"sheet"`
	Checksum    string    `json:"checksum"`
	Total       int       `json:"total"`
	Submitted   int       `json:"submitted"`
	Failed      int       `json:"failed"`
	DurationMS  int64     `json:"durationMs"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// FailedRow is one record that the remote API rejected.
type FailedRow struct {
	UploadID int64  `json:"uploadId"`
	Row      int    `json:"row"`
	Message  string `json:"message"`
}

// Store wraps the connection pool with the queries the console needs.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres with the configured pool limits and verifies
// the connection.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// EnsureSchema creates the history tables when they don't exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS uploads (
			id           BIGSERIAL PRIMARY KEY,
			session_id   TEXT NOT NULL,
			kind         TEXT NOT NULL,
			file_name    TEXT NOT NULL,
			sheet        TEXT NOT NULL,
			checksum     TEXT NOT NULL,
			total        INT NOT NULL,
			submitted    INT NOT NULL,
			failed       INT NOT NULL,
			duration_ms  BIGINT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS upload_failures (
			upload_id BIGINT NOT NULL REFERENCES uploads(id) ON DELETE CASCADE,
			row_num   INT NOT NULL,
			message   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_uploads_submitted_at ON uploads (submitted_at DESC);`

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

// RecordUpload saves one submission result and its per-row failures.
func (s *Store) RecordUpload(ctx context.Context, result *pipeline.SubmitResult) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO uploads (session_id, kind, file_name, sheet, checksum, total, submitted, failed, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		result.SessionID, result.Kind, result.FileName, result.Sheet,
		fmt.Sprintf("%016x", result.Checksum),
		result.Total, result.Submitted, result.Failed,
		result.Duration.Milliseconds(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error inserting upload: %w", err)
	}

	for _, o := range result.Outcomes {
		if o.Success {
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO upload_failures (upload_id, row_num, message)
			VALUES ($1, $2, $3)`,
			id, o.Row, o.Error,
		)
		if err != nil {
			return 0, fmt.Errorf("error inserting failure row: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing upload: %w", err)
	}
	return id, nil
}

// ListRecent returns the most recent uploads, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, kind, file_name, sheet, checksum,
		       total, submitted, failed, duration_ms, submitted_at
		FROM uploads
		ORDER BY submitted_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying uploads: %w", err)
	}
	defer rows.Close()

	records := []UploadRecord{}
	for rows.Next() {
		var r UploadRecord
		err = rows.Scan(&r.ID, &r.SessionID, &r.Kind, &r.FileName, &r.Sheet, &r.Checksum,
			&r.Total, &r.Submitted, &r.Failed, &r.DurationMS, &r.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning upload: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListFailures returns the failed rows for one upload.
func (s *Store) ListFailures(ctx context.Context, uploadID int64) ([]FailedRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT upload_id, row_num, message
		FROM upload_failures
		WHERE upload_id = $1
		ORDER BY row_num`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("error querying failures: %w", err)
	}
	defer rows.Close()

	failures := []FailedRow{}
	for rows.Next() {
		var f FailedRow
		if err = rows.Scan(&f.UploadID, &f.Row, &f.Message); err != nil {
			return nil, fmt.Errorf("error scanning failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
