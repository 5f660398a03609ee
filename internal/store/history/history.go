// Package history records completed categorization runs in a local sqlite
// database so the CLI and dashboard can show what was processed when.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"insitegent/internal/models"
	"insitegent/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	app_id         TEXT NOT NULL,
	date           TEXT NOT NULL,
	review_count   INTEGER NOT NULL,
	category_count INTEGER NOT NULL,
	new_categories INTEGER NOT NULL DEFAULT 0,
	degraded       INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_run_history_date ON run_history(date);
`

// Store persists run records in sqlite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the sqlite database at path and
// ensures the schema exists.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory '%s': %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database '%s': %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordRun inserts one completed run. The record's ID and CreatedAt are
// filled in on success.
func (s *Store) RecordRun(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return store.ErrInvalidInput
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_history (app_id, date, review_count, category_count, new_categories, degraded, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AppID, rec.Date, rec.ReviewCount, rec.CategoryCount,
		rec.NewCategories, boolToInt(rec.Degraded), rec.Duration.Milliseconds(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, app_id, date, review_count, category_count, new_categories, degraded, duration_ms, created_at
		 FROM run_history ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		rec := &models.RunRecord{}
		var degraded int
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.AppID, &rec.Date, &rec.ReviewCount,
			&rec.CategoryCount, &rec.NewCategories, &degraded, &durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		rec.Degraded = degraded != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ store.HistoryStore = (*Store)(nil)
