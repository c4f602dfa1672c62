// Package history keeps a SQLite log of develop sessions, repository
// analyses and screen tips so the history command can list recent work.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/megacoder/internal/models"
)

// Entry kinds
const (
	KindDevelop = "develop"
	KindRepo    = "repo"
	KindTip     = "tip"
)

// Entry is one row of history.
type Entry struct {
	ID          int64
	SessionID   string
	Kind        string
	Subject     string // description, repository target or tip snippet
	State       string
	Attempts    int
	FixRequests int
	Improved    bool
	Lint        string
	Detail      string // error text or short result
	StartedAt   time.Time
	EndedAt     time.Time
}

// Duration returns how long the entry's operation took.
func (e Entry) Duration() time.Duration {
	if e.EndedAt.Before(e.StartedAt) {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// Store manages the SQLite history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath.
// ":memory:" gives a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each new connection would get its own empty in-memory database
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must come first so the rest wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry retries "database is locked" failures with exponential backoff.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSession stores a finished develop session.
func (s *Store) RecordSession(ctx context.Context, summary models.Summary) error {
	detail := ""
	if summary.Err != nil {
		detail = summary.Err.Error()
	} else if summary.Optimized {
		detail = fmt.Sprintf("%.2f ms -> %.2f ms", millis(summary.Before), millis(summary.After))
	}

	return s.insert(ctx, Entry{
		SessionID:   summary.SessionID,
		Kind:        KindDevelop,
		Subject:     summary.Description,
		State:       string(summary.State),
		Attempts:    summary.Attempts,
		FixRequests: summary.FixRequests,
		Improved:    summary.Improved,
		Lint:        string(summary.Lint),
		Detail:      detail,
		StartedAt:   summary.StartedAt,
		EndedAt:     summary.EndedAt,
	})
}

// RecordEvent stores a repository analysis or a screen tip. A missing
// SessionID gets a fresh one and zero times become now.
func (s *Store) RecordEvent(ctx context.Context, e Entry) error {
	if e.Kind == "" {
		return fmt.Errorf("history entry kind is required")
	}
	if e.SessionID == "" {
		e.SessionID = uuid.New().String()
	}
	now := time.Now()
	if e.StartedAt.IsZero() {
		e.StartedAt = now
	}
	if e.EndedAt.IsZero() {
		e.EndedAt = now
	}
	return s.insert(ctx, e)
}

func (s *Store) insert(ctx context.Context, e Entry) error {
	query := `INSERT INTO sessions
		(session_id, kind, subject, state, attempts, fix_requests, improved, lint, detail, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		e.SessionID, e.Kind, e.Subject, e.State, e.Attempts, e.FixRequests,
		e.Improved, e.Lint, e.Detail, formatTime(e.StartedAt), formatTime(e.EndedAt))
	if err != nil {
		return fmt.Errorf("insert %s entry: %w", e.Kind, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. kind filters when non-empty.
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, session_id, kind, subject, state, attempts, fix_requests, improved, lint, detail, started_at, ended_at
		FROM sessions`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e              Entry
			started, ended string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Subject, &e.State, &e.Attempts,
			&e.FixRequests, &e.Improved, &e.Lint, &e.Detail, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.StartedAt = parseTime(started)
		e.EndedAt = parseTime(ended)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Stats counts develop sessions per final state.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM sessions WHERE kind = ? GROUP BY state`, KindDevelop)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats[state] = n
	}
	return stats, rows.Err()
}

// Times are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
