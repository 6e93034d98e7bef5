// Package state persists the set of handles the welcome bot has already acted on.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// DefaultPath is resolved against the working directory.
const DefaultPath = "x_welcome_state.json"

// ErrLocked is returned by Lock when another run holds the state file.
var ErrLocked = errors.New("state file is locked by another run")

// NormalizeHandle trims whitespace and one leading "@". Case is preserved.
func NormalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// Set is an insertion-ordered set of normalized handles. It only grows.
type Set struct {
	index   map[string]struct{}
	handles []string
}

// NewSet returns a set holding the normalized, non-empty handles.
func NewSet(handles ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(handles))}
	for _, h := range handles {
		s.Add(h)
	}
	return s
}

// Has reports whether the normalized handle is in the set.
func (s *Set) Has(handle string) bool {
	_, ok := s.index[NormalizeHandle(handle)]
	return ok
}

// Add inserts the normalized handle and reports whether it was new.
func (s *Set) Add(handle string) bool {
	h := NormalizeHandle(handle)
	if h == "" {
		return false
	}
	if _, ok := s.index[h]; ok {
		return false
	}
	s.index[h] = struct{}{}
	s.handles = append(s.handles, h)
	return true
}

// Len returns the number of handles.
func (s *Set) Len() int { return len(s.handles) }

// Handles returns a copy of the handles in insertion order.
func (s *Set) Handles() []string {
	return append([]string(nil), s.handles...)
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return NewSet(s.handles...)
}

type file struct {
	Welcomed []string `json:"welcomed"`
}

// FileStore keeps the set in a pretty-printed JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store at path, or DefaultPath when empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{Path: path}
}

// Load reads the set. A missing file is an empty set; an unreadable or corrupt
// file is an error so a damaged state never causes duplicate welcomes.
func (s *FileStore) Load() (*Set, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSet(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	return NewSet(f.Welcomed...), nil
}

// Save atomically replaces the file with the full set.
func (s *FileStore) Save(set *Set) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	f := file{Welcomed: set.Handles()}
	if f.Welcomed == nil {
		f.Welcomed = []string{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Lock takes an exclusive lock next to the state file so two runs cannot
// interleave their writes. It fails fast with ErrLocked instead of waiting.
func (s *FileStore) Lock() (func() error, error) {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	fl := flock.New(s.Path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}
