// Package localstore persists per-installation player state in SQLite:
// settings such as the player name, and the record of completed daily
// challenges that streaks are computed from.
package localstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const (
	nameKey = "player_name"
	idKey   = "player_id"
)

// Store provides durable storage for local player state.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// the required pragmas and schema. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PlayerName returns the configured display name, or "" when unset.
func (s *Store) PlayerName(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, nameKey).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read player name: %w", err)
	}
	return name, nil
}

// SetPlayerName stores the display name, replacing any previous value.
func (s *Store) SetPlayerName(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, nameKey, name)
	if err != nil {
		return fmt.Errorf("set player name: %w", err)
	}
	return nil
}

// PlayerID returns this installation's stable player identity, minting
// and persisting one on first use. Multiplayer results key on it.
func (s *Store) PlayerID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, idKey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("read player id: %w", err)
	}

	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, idKey, id)
	if err != nil {
		return "", fmt.Errorf("persist player id: %w", err)
	}
	// Re-read in case a concurrent open won the insert.
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, idKey).Scan(&id); err != nil {
		return "", fmt.Errorf("read player id: %w", err)
	}
	return id, nil
}

// MarkDailyCompleted records the daily challenge for day as finished.
// Re-marking an already completed day keeps the original completion time.
func (s *Store) MarkDailyCompleted(ctx context.Context, day string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_completions (day, completed_at) VALUES (?, ?)
		ON CONFLICT(day) DO NOTHING
	`, day, at.Unix())
	if err != nil {
		return fmt.Errorf("mark daily completed: %w", err)
	}
	return nil
}

// DailyCompleted reports whether the challenge for day was finished.
func (s *Store) DailyCompleted(ctx context.Context, day string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_completions WHERE day = ?`, day).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check daily completion: %w", err)
	}
	return n > 0, nil
}

// CompletedDays returns all completed challenge days, newest first.
func (s *Store) CompletedDays(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day FROM daily_completions ORDER BY day DESC`)
	if err != nil {
		return nil, fmt.Errorf("list completed days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan completed day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed days: %w", err)
	}
	return days, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
