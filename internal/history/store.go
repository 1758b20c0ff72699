package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
)

// Entry records one completed connection.
type Entry struct {
	ID            string        `json:"id"`
	ConnectedAt   time.Time     `json:"connectedAt"`
	Environment   string        `json:"environment"`
	RequestName   string        `json:"requestName"`
	WorkspacePath string        `json:"workspacePath"`
	URL           string        `json:"url"`
	Duration      time.Duration `json:"duration"`
	ClosedBy      string        `json:"closedBy"`
	CloseCode     int           `json:"closeCode,omitempty"`
	CloseReason   string        `json:"closeReason,omitempty"`
	SentCount     uint64        `json:"sentCount"`
	ReceivedCount uint64        `json:"receivedCount"`
	Error         string        `json:"error,omitempty"`
}

// Store keeps the connection log in one JSON file, newest first, trimmed to
// maxEntries. The file loads lazily on first use.
type Store struct {
	mu         sync.RWMutex
	path       string
	maxEntries int
	entries    []Entry
	loaded     bool
}

func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Store{path: path, maxEntries: maxEntries}
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}

	s.entries = append(s.entries, entry)
	s.sortLocked()
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
	return s.persistLocked()
}

func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Delete removes the entry with the given id. Deleting an id that is not
// present is not an error.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false, err
	}

	before := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e Entry) bool { return e.ID == id })
	if len(s.entries) == before {
		return false, nil
	}
	if err := s.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// ByRequest matches entries by request name or exact URL, newest first.
func (s *Store) ByRequest(identifier string) []Entry {
	if strings.TrimSpace(identifier) == "" {
		return nil
	}
	return s.filter(func(e Entry) bool {
		return e.RequestName == identifier || e.URL == identifier
	})
}

// ByWorkspace matches entries recorded against the given workspace file.
func (s *Store) ByWorkspace(path string) []Entry {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	cleaned := filepath.Clean(trimmed)
	return s.filter(func(e Entry) bool {
		return e.WorkspacePath != "" && filepath.Clean(e.WorkspacePath) == cleaned
	})
}

func (s *Store) filter(keep func(Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	for _, entry := range s.entries {
		if keep(entry) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = nil
	case err != nil:
		return errdef.Wrap(errdef.CodeHistory, err, "read history")
	}

	s.entries = []Entry{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return errdef.Wrap(errdef.CodeHistory, err, "parse history")
		}
		s.sortLocked()
	}
	s.loaded = true
	return nil
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write history tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace history file")
	}
	return nil
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return newerFirst(s.entries[i], s.entries[j])
	})
}

func newerFirst(a, b Entry) bool {
	switch {
	case a.ConnectedAt.IsZero() && b.ConnectedAt.IsZero():
		return a.ID > b.ID
	case a.ConnectedAt.IsZero():
		return false
	case b.ConnectedAt.IsZero():
		return true
	case a.ConnectedAt.Equal(b.ConnectedAt):
		return a.ID > b.ID
	default:
		return a.ConnectedAt.After(b.ConnectedAt)
	}
}
