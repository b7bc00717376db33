package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"jornada/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidDocument = errors.New("invalid document")
)

// Store holds the loaded document's episodes in chronological order. It is
// read-only after Load.
type Store struct {
	raw      []byte
	episodes []domain.Episode
	byID     map[string]int
}

// LoadFile reads and indexes the document at path.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return Load(data)
}

// LoadReader is Load over an io.Reader.
func LoadReader(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Load(data)
}

// Load parses {"historia": [...]} and sorts episodes by date.
func Load(data []byte) (*Store, error) {
	var probe struct {
		Historia json.RawMessage `json:"historia"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(probe.Historia) == 0 || bytes.Equal(bytes.TrimSpace(probe.Historia), []byte("null")) {
		return nil, fmt.Errorf("%w: missing historia", ErrInvalidDocument)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	s, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	s.raw = data
	return s, nil
}

// FromDocument indexes an already decoded document. Episode ids must be
// non-empty, unique and usable as a file name (no path separators, no "..").
func FromDocument(doc domain.Document) (*Store, error) {
	eps := append([]domain.Episode(nil), doc.Historia...)
	SortEpisodes(eps)
	byID := make(map[string]int, len(eps))
	for i, ep := range eps {
		if ep.ID == "" {
			return nil, fmt.Errorf("%w: episode without id (date %q)", ErrInvalidDocument, ep.Date)
		}
		if !safeID(ep.ID) {
			return nil, fmt.Errorf("%w: episode id %q is not a valid file name", ErrInvalidDocument, ep.ID)
		}
		if _, dup := byID[ep.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate episode id %s", ErrInvalidDocument, ep.ID)
		}
		byID[ep.ID] = i
	}
	return &Store{episodes: eps, byID: byID}, nil
}

func safeID(id string) bool {
	return !strings.ContainsAny(id, "/\\\x00") && !strings.Contains(id, "..")
}

// SortEpisodes orders episodes by date ascending. Episodes without a valid
// date go last; ties keep document order.
func SortEpisodes(eps []domain.Episode) {
	sort.SliceStable(eps, func(i, j int) bool {
		a, aok := eps[i].Time()
		b, bok := eps[j].Time()
		switch {
		case aok && bok:
			return a.Before(b)
		default:
			return aok && !bok
		}
	})
}

// Raw returns the document bytes as loaded, or nil for FromDocument stores.
func (s *Store) Raw() []byte { return s.raw }

func (s *Store) Len() int { return len(s.episodes) }

// List returns the episodes in chronological order.
func (s *Store) List() []domain.Episode {
	return append([]domain.Episode(nil), s.episodes...)
}

func (s *Store) Get(id string) (domain.Episode, error) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Episode{}, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	return s.episodes[i], nil
}

// Default is the earliest episode.
func (s *Store) Default() (domain.Episode, error) {
	if len(s.episodes) == 0 {
		return domain.Episode{}, fmt.Errorf("no episodes: %w", ErrNotFound)
	}
	return s.episodes[0], nil
}
