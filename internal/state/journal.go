// Package state records REPL sessions and their entries in a SQLite
// journal so past work can be listed and inspected later.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

var (
	// ErrSessionNotFound is returned when no session matches an ID or prefix.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAmbiguousSession is returned when an ID prefix matches several sessions.
	ErrAmbiguousSession = errors.New("session prefix is ambiguous")
)

// Session is one recorded REPL session.
type Session struct {
	ID         string
	EnginePath string
	StartedAt  time.Time
	EndedAt    *time.Time
	Entries    int
}

// Entry is one recorded cycle.
type Entry struct {
	SessionID   string
	Seq         int
	Input       string
	Output      string
	Stderr      string
	Failure     string
	Duration    time.Duration
	SubmittedAt time.Time
}

// Journal is the SQLite-backed session journal.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the journal at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: ":memory:" databases are per connection and the
	// journal has a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure sqlite database: %w", err)
		}
	}

	return &Journal{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Path returns the database path.
func (j *Journal) Path() string { return j.path }

// StartSession records a new session and returns its ID.
func (j *Journal) StartSession(ctx context.Context, enginePath string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (id, engine_path, started_at) VALUES (?, ?, ?)`,
		id, enginePath, j.now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (j *Journal) EndSession(ctx context.Context, id string) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		j.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return requireRow(res, id)
}

// RecordEntry appends one cycle to a session.
func (j *Journal) RecordEntry(ctx context.Context, e Entry) error {
	submitted := e.SubmittedAt
	if submitted.IsZero() {
		submitted = j.now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO entries (session_id, seq, input, output, stderr, failure, duration_ms, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Seq, e.Input, e.Output, e.Stderr, e.Failure,
		e.Duration.Milliseconds(), submitted.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record entry: %w", err)
	}
	return nil
}

// ClearSession deletes all entries of a session, keeping the session row.
func (j *Journal) ClearSession(ctx context.Context, id string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first. limit <= 0 returns all.
func (j *Journal) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.engine_path, s.started_at, s.ended_at, COUNT(e.id)
		FROM sessions s
		LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var (
			s       Session
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.EnginePath, &started, &ended, &s.Entries); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = time.UnixMilli(started)
		if ended.Valid {
			t := time.UnixMilli(ended.Int64)
			s.EndedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListEntries returns a session's entries in the order they were recorded.
func (j *Journal) ListEntries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, input, output, stderr, failure, duration_ms, submitted_at
		FROM entries
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			durMS     int64
			submitted int64
		)
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Input, &e.Output, &e.Stderr, &e.Failure, &durMS, &submitted); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.SubmittedAt = time.UnixMilli(submitted)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResolveSession expands a unique ID prefix to a full session ID.
func (j *Journal) ResolveSession(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrSessionNotFound
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE id LIKE ? || '%' ESCAPE '\' ORDER BY started_at DESC LIMIT 2`,
		likeEscaper.Replace(prefix))
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousSession, prefix)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}
