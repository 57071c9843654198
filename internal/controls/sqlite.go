package controls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite implements Store on a single SQLite table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed control store at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "datalogger_controls.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS user_controls (
		user_key TEXT PRIMARY KEY,
		next_chip INTEGER NOT NULL,
		operator INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		return nil, fmt.Errorf("create user_controls table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get returns the stored state for userKey.
func (s *SQLite) Get(ctx context.Context, userKey string) (State, bool, error) {
	var st State
	var operator int
	err := s.db.QueryRowContext(ctx,
		`SELECT next_chip, operator FROM user_controls WHERE user_key = ?`, userKey,
	).Scan(&st.NextChip, &operator)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("select controls: %w", err)
	}
	st.Operator = operator != 0
	return st, true, nil
}

// Set stores state for userKey.
func (s *SQLite) Set(ctx context.Context, userKey string, state State) error {
	operator := 0
	if state.Operator {
		operator = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_controls (user_key, next_chip, operator)
		VALUES (?, ?, ?)
		ON CONFLICT (user_key) DO UPDATE SET next_chip = excluded.next_chip, operator = excluded.operator`,
		userKey, state.NextChip, operator)
	if err != nil {
		return fmt.Errorf("upsert controls: %w", err)
	}
	return nil
}

// Reset drops all stored counters.
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_controls`); err != nil {
		return fmt.Errorf("reset controls: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }
