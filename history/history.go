// Package history keeps the texts already generated for a namespace so the
// model can be told not to repeat them.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var header = []string{"text", "author"}

// Entry is one generated text.
type Entry struct {
	Text   string
	Author string
}

// Store is an in-memory list of entries backed by a CSV file.
type Store struct {
	path string

	mu      sync.Mutex
	entries []Entry
}

// New returns a store for path holding entries. Nothing is read from disk.
func New(path string, entries ...Entry) *Store {
	return &Store{path: path, entries: append([]Entry(nil), entries...)}
}

// Load reads path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	defer f.Close()

	entries, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	s.entries = entries
	return s, nil
}

func decode(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for i, rec := range records {
		if i == 0 && len(rec) >= 1 && rec[0] == header[0] {
			continue
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		e := Entry{Text: rec[0]}
		if len(rec) > 1 {
			e.Author = rec[1]
		}
		out = append(out, e)
	}
	return out, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Append adds an entry. Call Save to persist it.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Texts returns the text of every entry in insertion order.
func (s *Store) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Text
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Save writes all entries to the backing file, creating parent directories.
// The file is replaced atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	entries := append([]Entry(nil), s.entries...)
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.csv")
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	_ = w.Write(header)
	for _, e := range entries {
		_ = w.Write([]string{e.Text, e.Author})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history %s: %w", s.path, err)
	}
	return nil
}
