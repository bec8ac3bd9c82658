package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vee-sh/bssm/internal/config"
	"github.com/vee-sh/bssm/internal/logging"
)

// ErrCorrupt is returned by Load alongside an empty document when the file
// exists but cannot be decoded. The next Save overwrites it.
var ErrCorrupt = errors.New("state file is corrupt")

type Favorite struct {
	InstanceID string    `json:"instanceId"`
	Name       string    `json:"name,omitempty"`
	Profile    string    `json:"profile,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}

type HistoryEntry struct {
	InstanceID   string    `json:"instanceId"`
	InstanceName string    `json:"instanceName"`
	Profile      string    `json:"profile,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

type Document struct {
	Favorites []Favorite     `json:"favorites"`
	History   []HistoryEntry `json:"history"`
}

func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// Load reads the document at path. A missing file yields an empty document.
func Load(path string) (Document, error) {
	doc := Document{Favorites: []Favorite{}, History: []HistoryEntry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}
	var parsed Document
	if err := json.Unmarshal(data, &parsed); err != nil {
		return doc, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if parsed.Favorites == nil {
		parsed.Favorites = []Favorite{}
	}
	if parsed.History == nil {
		parsed.History = []HistoryEntry{}
	}
	return parsed, nil
}

func Save(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Store serialises read-modify-write cycles on one state file.
type Store struct {
	mu         sync.Mutex
	path       string
	maxHistory int
	now        func() time.Time
}

func NewStore(path string, maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = config.DefaultMaxHistory
	}
	return &Store{path: path, maxHistory: maxHistory, now: time.Now}
}

func (s *Store) Path() string { return s.path }

// load tolerates a corrupt file: it logs and starts from an empty document.
func (s *Store) load() (Document, error) {
	doc, err := Load(s.path)
	if errors.Is(err, ErrCorrupt) {
		logging.Logger().WithField("path", s.path).Warnf("resetting state: %v", err)
		return doc, nil
	}
	return doc, err
}

func (s *Store) update(fn func(*Document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if !fn(&doc) {
		return nil
	}
	return Save(s.path, doc)
}

func (s *Store) Favorites() ([]Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	return doc.Favorites, err
}

func (s *Store) History() ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	return doc.History, err
}

// AddFavorite appends f unless its instance is already a favorite. It
// reports whether anything was added.
func (s *Store) AddFavorite(f Favorite) (bool, error) {
	added := false
	err := s.update(func(doc *Document) bool {
		for _, existing := range doc.Favorites {
			if existing.InstanceID == f.InstanceID {
				return false
			}
		}
		if f.AddedAt.IsZero() {
			f.AddedAt = s.now()
		}
		doc.Favorites = append(doc.Favorites, f)
		added = true
		return true
	})
	return added, err
}

func (s *Store) RemoveFavorite(instanceID string) (bool, error) {
	removed := false
	err := s.update(func(doc *Document) bool {
		kept := doc.Favorites[:0]
		for _, f := range doc.Favorites {
			if f.InstanceID == instanceID {
				removed = true
				continue
			}
			kept = append(kept, f)
		}
		doc.Favorites = kept
		return removed
	})
	return removed, err
}

func (s *Store) IsFavorite(instanceID string) (bool, error) {
	favs, err := s.Favorites()
	if err != nil {
		return false, err
	}
	for _, f := range favs {
		if f.InstanceID == instanceID {
			return true, nil
		}
	}
	return false, nil
}

// AddHistory moves the instance to the front of the history and trims the
// list to the configured maximum.
func (s *Store) AddHistory(e HistoryEntry) error {
	return s.update(func(doc *Document) bool {
		if e.ConnectedAt.IsZero() {
			e.ConnectedAt = s.now()
		}
		hist := make([]HistoryEntry, 0, len(doc.History)+1)
		hist = append(hist, e)
		for _, h := range doc.History {
			if h.InstanceID != e.InstanceID {
				hist = append(hist, h)
			}
		}
		if len(hist) > s.maxHistory {
			hist = hist[:s.maxHistory]
		}
		doc.History = hist
		return true
	})
}

func (s *Store) ClearHistory() error {
	return s.update(func(doc *Document) bool {
		doc.History = []HistoryEntry{}
		return true
	})
}
