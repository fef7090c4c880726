package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		short_code TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		month INTEGER NOT NULL DEFAULT 1,
		mode TEXT NOT NULL DEFAULT 'ADULT',
		duration_minutes INTEGER NOT NULL,
		questions_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		exam_short_code TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		submitted_at DATETIME,
		score INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		wrong_count INTEGER NOT NULL DEFAULT 0,
		answers_json TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'in_progress'
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		join_code TEXT NOT NULL,
		exam_short_code TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'teacher',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_exam ON attempts(exam_short_code);
	CREATE INDEX IF NOT EXISTS idx_sessions_code ON sessions(join_code, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// decodeJSONColumn unmarshals an embedded JSON column into dst. Corrupted
// values degrade to the zero value instead of failing the read; the loss is
// logged so it is at least visible in operation.
func decodeJSONColumn(table, id, raw string, dst any) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		slog.Warn("discarding corrupted JSON column", "table", table, "id", id, "error", err)
	}
}
