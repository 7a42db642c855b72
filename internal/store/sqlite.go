// ABOUTME: SQLite-backed execution audit log using modernc.org/sqlite.
// ABOUTME: Records dispatch outcomes with automatic schema creation.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/toolgate/internal/dispatch"
)

// SQLiteStore persists execution audit records. It implements
// dispatch.Recorder. Registrations themselves are never persisted; the
// registry is rebuilt from adapters on every start.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			service_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			outcome TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL,
			started_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_executions_started_at
			ON executions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordExecution inserts one audit row for a completed dispatch.
func (s *SQLiteStore) RecordExecution(ctx context.Context, exec dispatch.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, service_id, tool, outcome, message, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.ServiceID, exec.Tool, exec.Outcome, exec.Message,
		exec.Duration.Milliseconds(), exec.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting execution record: %w", err)
	}
	return nil
}

// ListExecutions returns the most recent executions, newest first.
// Limit values outside (0, 500] are clamped to 50.
func (s *SQLiteStore) ListExecutions(ctx context.Context, limit int) ([]dispatch.Execution, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, tool, outcome, message, duration_ms, started_at
		FROM executions
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var execs []dispatch.Execution
	for rows.Next() {
		var exec dispatch.Execution
		var durationMs int64
		var startedAt time.Time
		if err := rows.Scan(&exec.ID, &exec.ServiceID, &exec.Tool, &exec.Outcome,
			&exec.Message, &durationMs, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		exec.Duration = time.Duration(durationMs) * time.Millisecond
		exec.StartedAt = startedAt
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
