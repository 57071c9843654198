package controls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/datalogger?sslmode=disable"

// Postgres implements Store on a Postgres table, for multi-node deployments
// that share one control store.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a Postgres-backed control store using the provided DSN
// (falls back to a local default).
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS user_controls (
		user_key TEXT PRIMARY KEY,
		next_chip INTEGER NOT NULL,
		operator BOOLEAN NOT NULL DEFAULT FALSE
	)`); err != nil {
		return nil, fmt.Errorf("create user_controls table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Get returns the stored state for userKey.
func (p *Postgres) Get(ctx context.Context, userKey string) (State, bool, error) {
	var st State
	err := p.db.QueryRowContext(ctx,
		`SELECT next_chip, operator FROM user_controls WHERE user_key = $1`, userKey,
	).Scan(&st.NextChip, &st.Operator)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("select controls: %w", err)
	}
	return st, true, nil
}

// Set stores state for userKey.
func (p *Postgres) Set(ctx context.Context, userKey string, state State) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO user_controls (user_key, next_chip, operator)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_key) DO UPDATE SET next_chip = EXCLUDED.next_chip, operator = EXCLUDED.operator`,
		userKey, state.NextChip, state.Operator)
	if err != nil {
		return fmt.Errorf("upsert controls: %w", err)
	}
	return nil
}

// Reset drops all stored counters.
func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM user_controls`); err != nil {
		return fmt.Errorf("reset controls: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (p *Postgres) Close() error { return p.db.Close() }
