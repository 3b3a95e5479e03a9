package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the history as newline-delimited JSON. Reading also
// accepts a file holding a single JSON array.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Append writes one line to the end of the log.
func (s *FileStore) Append(_ context.Context, entry BatchSummary) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// Read returns every readable entry in file order. A missing file is an
// empty history and malformed lines are skipped.
func (s *FileStore) Read(_ context.Context) ([]BatchSummary, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return []BatchSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return Parse(data), nil
}

// Parse decodes NDJSON or a JSON array, dropping anything unreadable.
func Parse(data []byte) []BatchSummary {
	data = bytes.TrimSpace(data)
	out := []BatchSummary{}
	if len(data) == 0 {
		return out
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return out
		}
		for _, item := range raw {
			var b BatchSummary
			if err := json.Unmarshal(item, &b); err == nil {
				out = append(out, b)
			}
		}
		return out
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var b BatchSummary
		if err := json.Unmarshal(line, &b); err == nil {
			out = append(out, b)
		}
	}
	return out
}

// Clear truncates the log.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, nil, 0o644); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
