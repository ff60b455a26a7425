// Package postgres stores users, chat exchanges, document analyses and
// solicitor referrals.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID int64 = 2026101901

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	message TEXT NOT NULL,
	response TEXT NOT NULL,
	legal_category TEXT,
	citations JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages(user_id, created_at);

CREATE TABLE IF NOT EXISTS document_analyses (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	filename TEXT NOT NULL,
	document_type TEXT NOT NULL,
	storage_path TEXT,
	document_text TEXT NOT NULL,
	analysis_summary TEXT NOT NULL,
	claimant_arguments JSONB NOT NULL DEFAULT '[]'::jsonb,
	defence_points JSONB NOT NULL DEFAULT '[]'::jsonb,
	claim_value_estimate INTEGER NOT NULL DEFAULT 0,
	track_type TEXT NOT NULL,
	legal_categories JSONB NOT NULL DEFAULT '[]'::jsonb,
	urgency_level TEXT NOT NULL,
	outcome TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_analyses_user_created ON document_analyses(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS solicitor_referrals (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	analysis_id TEXT UNIQUE,
	legal_category TEXT NOT NULL,
	track_type TEXT NOT NULL,
	reason TEXT NOT NULL,
	solicitor_type TEXT NOT NULL,
	urgency TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_solicitor_referrals_user_created ON solicitor_referrals(user_id, created_at DESC);
`

// EnsureSchema creates the tables if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
