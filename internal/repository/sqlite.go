package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		baby_name TEXT NOT NULL DEFAULT '',
		baby_dob DATETIME,
		language TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_logs_user ON logs(user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS cries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		confidence REAL NOT NULL,
		reasoning TEXT NOT NULL,
		advice_key TEXT NOT NULL,
		soothe_sound TEXT NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL,
		is_fallback INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cries_user ON cries(user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS usage_limits (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		scan_count INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY(user_id, date)
	);`,
	`CREATE TABLE IF NOT EXISTS ai_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		function_name TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		token_usage INTEGER,
		error TEXT,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);`,
}

// Open opens a sqlite database. A "sqlite://" or "file:" prefix is accepted.
func Open(dsn string) (*sql.DB, error) {
	dsn = strings.TrimPrefix(strings.TrimSpace(dsn), "sqlite://")
	if dsn == "" {
		return nil, errors.New("empty database DSN")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows one writer; a single connection keeps upserts serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates the tables when they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
