package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// schema creates the parameter history table and its lookup index.
// Both statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS parameter_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	parameter  TEXT NOT NULL,
	value      REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parameter_history_lookup
	ON parameter_history (parameter, created_at);
`

// Entry is a single stored parameter value.
type Entry struct {
	ID        int64     `json:"id"`
	Parameter string    `json:"parameter"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and queries parameter history in SQLite.
//
// All methods are safe for concurrent use; the underlying connection pool
// serialises writers.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a parameter history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *Repository: Repository instance ready for use after Init
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init creates the history schema if it does not exist yet.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

// Record inserts a single parameter value.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - parameter: Parameter name from the register table
//   - value: Decoded numeric value
//   - at: Timestamp of the poll cycle that produced the value
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Record(ctx context.Context, parameter string, value float64, at time.Time) error {
	if parameter == "" {
		return fmt.Errorf("parameter name is required")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO parameter_history (parameter, value, created_at) VALUES (?, ?, ?)",
		parameter,
		value,
		at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting parameter history: %w", err)
	}

	return nil
}

// RecordSnapshot appends every numeric value of a poll snapshot in one
// transaction. Non-numeric values (mode labels, error strings) are skipped.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - snapshot: Parameter name to decoded value
//   - at: Timestamp of the poll cycle
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) RecordSnapshot(ctx context.Context, snapshot map[string]any, at time.Time) error {
	created := at.UTC().Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting history transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	for name, value := range snapshot {
		num, ok := asNumber(value)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO parameter_history (parameter, value, created_at) VALUES (?, ?, ?)",
			name, num, created,
		); err != nil {
			return fmt.Errorf("inserting parameter history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history transaction: %w", err)
	}

	return nil
}

// GetHistory returns recent values for a parameter, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - parameter: Parameter name from the register table
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) GetHistory(ctx context.Context, parameter string, limit int) ([]Entry, error) {
	if parameter == "" {
		return nil, fmt.Errorf("parameter name is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, parameter, value, created_at
		 FROM parameter_history
		 WHERE parameter = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		parameter,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying parameter history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Parameter, &entry.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning parameter history: %w", err)
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parameter history: %w", err)
	}

	return entries, nil
}

// Prune deletes history entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM parameter_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting parameter history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}

	return timestamp, nil
}

// asNumber coerces the decoded value types that carry numeric data.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint16:
		return float64(v), true
	default:
		return 0, false
	}
}
