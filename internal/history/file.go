package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// maxLineBytes bounds a single JSON line when reading the history file.
const maxLineBytes = 1 << 20

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists history as JSON lines in a local file.
// Safe for concurrent use within one process.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that writes to path. The file and its
// parent directory are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save appends e as one JSON line.
func (s *FileStore) Save(_ context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("history: create directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}

// Recent scans the whole file. Lines that fail to decode are skipped.
func (s *FileStore) Recent(ctx context.Context, learner string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open file: %w", err)
	}
	defer f.Close()

	var matched []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			slog.Warn("history: skipping malformed line", "path", s.path, "line", line, "err", err)
			continue
		}
		if e.Learner == learner {
			matched = append(matched, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read file: %w", err)
	}

	// The file is in write order; newest entries are last.
	slices.Reverse(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []Entry{}
	}
	return matched, nil
}

// Ping checks that the directory holding the history file exists or can be
// created.
func (s *FileStore) Ping(context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per operation.
func (s *FileStore) Close() error { return nil }
