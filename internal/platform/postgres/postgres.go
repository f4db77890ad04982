// Package postgres owns the database pool and the versioned schema. Stores
// never create tables themselves; every schema change ships as a migration
// here so an implementation swap preserves persisted ledger state.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// Connect opens a pgx pool and brings the schema up to date.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// OpenSQL opens a database/sql handle over lib/pq for the stores that use
// the standard driver interface. The schema is managed by the pgx pool.
func OpenSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations run in order exactly once each; the schema_version table
// records the highest applied version. Append only, never edit a shipped
// migration.
var migrations = []migration{
	{
		version: 1,
		name:    "ledger core",
		stmts: []string{
			`CREATE TABLE ledger_accounts (
				address text PRIMARY KEY,
				shares numeric(78,0) NOT NULL DEFAULT 0,
				blocked boolean NOT NULL DEFAULT false
			)`,
			`CREATE TABLE ledger_state (
				id smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
				total_shares numeric(78,0) NOT NULL DEFAULT 0,
				reward_multiplier numeric(78,0) NOT NULL,
				decimals smallint NOT NULL DEFAULT 18
			)`,
		},
	},
	{
		version: 2,
		name:    "intake requests",
		stmts: []string{
			`CREATE TABLE intake_requests (
				id uuid PRIMARY KEY,
				account text NOT NULL,
				kind text NOT NULL,
				amount numeric(78,0) NOT NULL,
				request_date timestamptz NOT NULL
			)`,
			`CREATE INDEX intake_requests_account_idx ON intake_requests (account, request_date)`,
		},
	},
	{
		version: 3,
		name:    "holder enumeration",
		stmts: []string{
			`CREATE INDEX ledger_accounts_holders_idx ON ledger_accounts (address) WHERE shares > 0`,
		},
	},
}

// Migrate applies pending migrations under an advisory lock so concurrent
// instances do not race on startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version integer PRIMARY KEY,
		name text NOT NULL,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('xftledger_schema'))`); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	var current int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version, name) VALUES ($1, $2)`, m.version, m.name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "schema migration applied", "version", m.version, "name", m.name)
		}
	}
	return tx.Commit(ctx)
}
