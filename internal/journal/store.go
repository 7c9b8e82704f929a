// Package journal mirrors transcript lines into a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"timescribe/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		reply_to INTEGER,
		created_at REAL NOT NULL,
		UNIQUE(session, seq)
	);
	CREATE INDEX IF NOT EXISTS messages_created_at ON messages(created_at);
`

// Entry is a stored transcript line.
type Entry struct {
	ID        string
	Session   string
	Seq       int
	Role      domain.Role
	Text      string
	ReplyTo   int
	CreatedAt time.Time
}

// Store is the journal database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		var err error
		if dsn, err = fileDSN(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// fileDSN creates the journal directory and returns a file: URI for path
// with the pragmas applied to every connection.
func fileDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve journal path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create journal directory: %w", err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
	}
	return u.String(), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores one transcript line for a conversation session.
func (s *Store) Append(ctx context.Context, session string, msg domain.Message) error {
	var replyTo sql.NullInt64
	if msg.ReplyTo > 0 {
		replyTo = sql.NullInt64{Int64: int64(msg.ReplyTo), Valid: true}
	}
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session, seq, role, text, reply_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), session, msg.ID, string(msg.Role), msg.Text, replyTo, unixFromTime(at))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest lines across all sessions, oldest
// first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, seq, role, text, reply_to, created_at FROM (
			SELECT id, session, seq, role, text, reply_to, created_at, rowid AS rid
			FROM messages
			ORDER BY created_at DESC, rid DESC
			LIMIT ?
		) ORDER BY created_at ASC, rid ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var role string
		var replyTo sql.NullInt64
		var createdAt float64
		if err := rows.Scan(&e.ID, &e.Session, &e.Seq, &role, &e.Text, &replyTo, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		e.Role = domain.Role(role)
		if replyTo.Valid {
			e.ReplyTo = int(replyTo.Int64)
		}
		e.CreatedAt = timeFromUnix(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}
