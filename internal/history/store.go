package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	transcriptFile = "messages.jsonl"
	summaryFile    = "summary.txt"
	uploadsDir     = "uploads"
)

// Store lays sessions out under a data directory:
//
//	<dir>/sessions/<id>/messages.jsonl
//	<dir>/sessions/<id>/summary.txt
//	<dir>/sessions/<id>/uploads/
//
// All operations are whole-file or append-only physical writes; callers that
// need request-level serialization hold their own per-session lock.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SessionDir returns the directory for a session, creating it on demand.
func (s *Store) SessionDir(sessionID string) (string, error) {
	id := sanitizeID(sessionID)
	if id == "" {
		return "", fmt.Errorf("history: invalid session id %q", sessionID)
	}
	dir := filepath.Join(s.dir, "sessions", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("history: create session dir: %w", err)
	}
	return dir, nil
}

// Append adds one message to the session transcript.
func (s *Store) Append(sessionID string, m Message) error {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return err
	}

	line, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("history: marshal message: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, transcriptFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("history: append message: %w", err)
	}
	return nil
}

// Messages returns the full ordered transcript. Reading is best-effort
// line-by-line: a corrupt line is skipped, never allowed to lose the rest of
// the session's history. A missing transcript is an empty session.
func (s *Store) Messages(sessionID string) ([]Message, error) {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, transcriptFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open transcript: %w", err)
	}
	defer f.Close()

	var msgs []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return msgs, fmt.Errorf("history: read transcript: %w", err)
	}
	return msgs, nil
}

// Summary returns the current session summary, empty if none exists.
func (s *Store) Summary(sessionID string) (string, error) {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, summaryFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("history: read summary: %w", err)
	}
	return string(data), nil
}

// WriteSummary overwrites the session summary wholesale. Summaries are never
// merged; last writer wins.
func (s *Store) WriteSummary(sessionID, text string) error {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, summaryFile), []byte(text), 0o644); err != nil {
		return fmt.Errorf("history: write summary: %w", err)
	}
	return nil
}

// UploadDir returns the session's upload directory, creating it on demand.
func (s *Store) UploadDir(sessionID string) (string, error) {
	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	up := filepath.Join(dir, uploadsDir)
	if err := os.MkdirAll(up, 0o755); err != nil {
		return "", fmt.Errorf("history: create upload dir: %w", err)
	}
	return up, nil
}

// sanitizeID keeps session ids filesystem-safe.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
