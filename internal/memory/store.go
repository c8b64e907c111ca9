package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists the memory list as newline-delimited text, one memory per
// line, trailing newline only when non-empty. Reads and writes are
// whole-file operations; a process-wide mutex serializes writers.
type Store struct {
	path     string
	maxLines int

	mu sync.Mutex
}

// NewStore creates a Store over the file at path. maxLines caps the list;
// zero or negative means uncapped.
func NewStore(path string, maxLines int) *Store {
	return &Store{path: path, maxLines: maxLines}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Lines returns the current memory lines. A missing file is an empty store.
func (s *Store) Lines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: read %s: %w", s.path, err)
	}
	return parseLines(string(data)), nil
}

// Write replaces the whole memory list, enforcing the dedup invariant and
// the length cap (keeping the earliest lines) at the storage boundary.
func (s *Store) Write(lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(lines)
}

// ApplyEdits loads the current list, applies the request, and persists the
// result. Returns the new list and the patch counts.
func (s *Store) ApplyEdits(req EditRequest) ([]string, PatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.Lines()
	if err != nil {
		return nil, PatchResult{}, err
	}
	out, res := Apply(lines, req)
	if err := s.write(out); err != nil {
		return nil, res, err
	}
	return out, res, nil
}

// Append adds a single line if not already present. Used by the CLI.
func (s *Store) Append(line string) (bool, error) {
	_, res, err := s.ApplyEdits(EditRequest{Add: []string{line}})
	return res.Added > 0, err
}

// RemoveAt removes the line at the given 1-based position. Used by the CLI,
// which reads the position straight from `membot memory list` output, so the
// content check happens against the freshly loaded line.
func (s *Store) RemoveAt(pos int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.Lines()
	if err != nil {
		return false, err
	}
	if pos < 1 || pos > len(lines) {
		return false, nil
	}
	out, res := Apply(lines, EditRequest{Remove: []RemoveOp{{LineStart: pos, ExactText: lines[pos-1]}}})
	if err := s.write(out); err != nil {
		return false, err
	}
	return res.Removed > 0, nil
}

// Clear empties the store.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(nil)
}

func (s *Store) write(lines []string) error {
	lines, _ = Dedup(lines)
	if s.maxLines > 0 && len(lines) > s.maxLines {
		lines = lines[:s.maxLines]
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("memory: mkdir: %w", err)
	}

	var content string
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("memory: write %s: %w", s.path, err)
	}
	return nil
}

func parseLines(data string) []string {
	var out []string
	for _, l := range strings.Split(data, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
