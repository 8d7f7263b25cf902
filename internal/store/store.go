// Package store provides the SQLite-backed session history store. Each
// session has its own ordered sequence of turns that survives restarts and is
// replayed into the prompt of later questions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a question asked by the recruiter.
	RoleUser Role = "user"
	// RoleAssistant is an answer produced by the model.
	RoleAssistant Role = "assistant"
)

// ErrInvalidRole is returned by Append for roles other than user/assistant.
var ErrInvalidRole = errors.New("store: invalid role")

// Turn is a single message in a session's history.
type Turn struct {
	// SessionID is the session the turn belongs to.
	SessionID string `json:"session_id"`
	// Role is the author of the turn.
	Role Role `json:"role"`
	// Content is the text of the turn.
	Content string `json:"content"`
	// CreatedAt is when the turn was persisted.
	CreatedAt time.Time `json:"created_at"`
	// Seq is the position of the turn within its session, starting at 1.
	Seq int64 `json:"seq"`
}

// HistoryStore persists and retrieves conversation history keyed by session.
// Implementations must be safe for concurrent use and must return turns in
// the order they were appended.
type HistoryStore interface {
	// History returns every turn of the session, oldest first. An unknown
	// session yields an empty slice.
	History(ctx context.Context, sessionID string) ([]Turn, error)
	// Append persists a single turn at the end of the session.
	Append(ctx context.Context, sessionID string, role Role, content string) error
	// Recent returns the most recent n turns of the session, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]Turn, error)
	// Reset removes every turn of the session. Resetting an unknown session
	// is not an error.
	Reset(ctx context.Context, sessionID string) error
	// Sessions lists every session with at least one turn.
	Sessions(ctx context.Context) ([]string, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a HistoryStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the history database.
// It resolves to ~/.resumeai/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".resumeai")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection keeps seq assignment race-free and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS turns (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   TEXT    NOT NULL,
    seq          INTEGER NOT NULL,
    role         TEXT    NOT NULL CHECK(role IN ('user','assistant')),
    content      TEXT    NOT NULL,
    created_at   INTEGER NOT NULL,  -- Unix timestamp (nanoseconds)
    UNIQUE (session_id, seq)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a single turn at the end of the session. The sequence
// number is assigned inside the insert transaction.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, role Role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: append: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	const next = `SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?`
	if err := tx.QueryRowContext(ctx, next, sessionID).Scan(&seq); err != nil {
		return fmt.Errorf("store: append: next seq: %w", err)
	}

	const q = `INSERT INTO turns (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, sessionID, seq, string(role), content, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: append: commit: %w", err)
	}
	return nil
}

// History returns every turn of the session ordered by sequence.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	const q = `
SELECT session_id, seq, role, content, created_at
FROM   turns
WHERE  session_id = ?
ORDER  BY seq ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	return scanTurns(rows, "history")
}

// Recent returns the most recent n turns of the session, oldest first.
// A subquery selects the tail, then re-orders it for prompt injection.
func (s *SQLiteStore) Recent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	const q = `
SELECT session_id, seq, role, content, created_at FROM (
    SELECT session_id, seq, role, content, created_at
    FROM   turns
    WHERE  session_id = ?
    ORDER  BY seq DESC
    LIMIT  ?
) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	return scanTurns(rows, "recent")
}

// Reset deletes every turn of the session.
func (s *SQLiteStore) Reset(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}

// Sessions lists every session with stored turns, alphabetically.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM turns ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("store: sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: sessions scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sessions rows: %w", err)
	}
	return ids, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

func scanTurns(rows *sql.Rows, op string) ([]Turn, error) {
	defer rows.Close()

	turns := make([]Turn, 0)
	for rows.Next() {
		var t Turn
		var ts int64
		var role string
		if err := rows.Scan(&t.SessionID, &t.Seq, &role, &t.Content, &ts); err != nil {
			return nil, fmt.Errorf("store: %s scan: %w", op, err)
		}
		t.Role = Role(role)
		t.CreatedAt = time.Unix(0, ts)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s rows: %w", op, err)
	}
	return turns, nil
}
