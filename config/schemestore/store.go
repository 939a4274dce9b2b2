// Package schemestore shares the current palette with other processes over
// HTTP. The serve command hosts a Store behind NewHandler; HTTPClient reads it
// back.
package schemestore

import (
	"errors"
	"sync"

	"github.com/kastheco/monothematic/palette"
)

// ErrNoScheme is returned when no palette has been published yet.
var ErrNoScheme = errors.New("no scheme published")

// Store holds the most recently generated palette.
type Store interface {
	// Scheme returns the current palette, or ErrNoScheme.
	Scheme() (palette.Palette, error)
	// Publish replaces the current palette.
	Publish(p palette.Palette)
	// Ping reports whether the store can serve requests.
	Ping() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	current palette.Palette
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Scheme() (palette.Palette, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.IsZero() {
		return palette.Palette{}, ErrNoScheme
	}
	return s.current, nil
}

func (s *MemoryStore) Publish(p palette.Palette) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
}

func (s *MemoryStore) Ping() error { return nil }
