package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Session is one row of the session index. The transcript itself lives in
// the history store; this table only backs listing and ordering in the UI.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionIndex provides read/write access to the sessions table.
type SessionIndex struct {
	db *DB
}

// NewSessionIndex creates a SessionIndex backed by the given DB.
func NewSessionIndex(database *DB) *SessionIndex {
	return &SessionIndex{db: database}
}

// Touch records activity on a session: inserts it on first sight, bumps
// message_count by added, and sets the title once (first non-empty wins).
func (s *SessionIndex) Touch(id, title string, added int) error {
	_, err := s.db.Conn().Exec(`
		INSERT INTO sessions (id, title, message_count)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    message_count = message_count + excluded.message_count,
		    title         = CASE WHEN sessions.title = '' THEN excluded.title ELSE sessions.title END,
		    updated_at    = CURRENT_TIMESTAMP`,
		id, title, added,
	)
	if err != nil {
		return fmt.Errorf("db: touch session: %w", err)
	}
	return nil
}

// Get returns a single session, or sql.ErrNoRows if unknown.
func (s *SessionIndex) Get(id string) (Session, error) {
	row := s.db.Conn().QueryRow(
		`SELECT id, title, message_count, created_at, updated_at FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// List returns all sessions, most recently active first.
func (s *SessionIndex) List() ([]Session, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, title, message_count, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var createdAt, updatedAt string
	if err := row.Scan(&sess.ID, &sess.Title, &sess.MessageCount, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return sess, err
		}
		return sess, fmt.Errorf("db: scan session: %w", err)
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return sess, nil
}

// parseTime handles the timestamp formats SQLite emits for CURRENT_TIMESTAMP.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
