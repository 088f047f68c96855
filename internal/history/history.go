package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const HistoryDir = ".skin-sync"
const HistoryFile = "history.json"

type HistoryEntry struct {
	Path       string    `json:"path"`
	Name       string    `json:"name,omitempty"`
	LastAccess time.Time `json:"last_access"`
}

type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// Book reads and writes the history file at one location.
type Book struct {
	path string
	now  func() time.Time
}

// Open returns a Book stored in dir.
func Open(dir string) *Book {
	return &Book{path: filepath.Join(dir, HistoryFile), now: time.Now}
}

// Default returns the Book in the user's home directory.
func Default() *Book {
	home, _ := os.UserHomeDir()
	return Open(filepath.Join(home, HistoryDir))
}

func (b *Book) Load() (*History, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return &History{Entries: []HistoryEntry{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (b *Book) Save(h *History) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, append(data, '\n'), 0644)
}

// Touch records an access to the project at path.
func (b *Book) Touch(path, name string) error {
	h, err := b.Load()
	if err != nil {
		return err
	}
	for i, entry := range h.Entries {
		if entry.Path == path {
			h.Entries[i].LastAccess = b.now()
			if name != "" {
				h.Entries[i].Name = name
			}
			return b.Save(h)
		}
	}
	h.Entries = append(h.Entries, HistoryEntry{Path: path, Name: name, LastAccess: b.now()})
	return b.Save(h)
}

func (b *Book) Remove(path string) error {
	h, err := b.Load()
	if err != nil {
		return err
	}
	for i, entry := range h.Entries {
		if entry.Path == path {
			h.Entries = append(h.Entries[:i], h.Entries[i+1:]...)
			break
		}
	}
	return b.Save(h)
}

// Recent lists entries matching query (case-insensitive on path and name),
// most recently used first. An empty query matches everything.
func (b *Book) Recent(query string) ([]HistoryEntry, error) {
	h, err := b.Load()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []HistoryEntry
	for _, entry := range h.Entries {
		if q == "" || strings.Contains(strings.ToLower(entry.Path), q) || strings.Contains(strings.ToLower(entry.Name), q) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastAccess.After(out[j].LastAccess)
	})
	return out, nil
}
