package settings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// Backend is a durable key-value slot.
type Backend interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Watch emits after every write to key, including writes made by other
	// processes sharing the backend. The channel closes when ctx is done.
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
	Close() error
}

// Store holds the in-memory settings for one key and syncs them with a
// backend. Writes are last-writer-wins; there is no read-modify-write
// transaction against concurrent writers.
type Store struct {
	backend Backend
	key     string

	mu       sync.RWMutex
	current  Settings
	revision string
}

// NewStore returns a store with empty settings. Call Load to read the slot.
func NewStore(backend Backend, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{backend: backend, key: key}
}

func (s *Store) Key() string { return s.key }

// Settings returns a copy of the in-memory settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) IsConfigured() bool {
	return s.Settings().IsConfigured()
}

// Revision identifies the last loaded or saved payload; empty before any.
func (s *Store) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Load reads the slot. An absent entry leaves the settings untouched; a
// present one replaces them wholesale. Malformed JSON is returned as is.
func (s *Store) Load(ctx context.Context) error {
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("settings: load %s: %w", s.key, err)
	}
	if !ok {
		return nil
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("settings: decode %s: %w", s.key, err)
	}

	s.mu.Lock()
	s.current = loaded
	s.revision = revisionOf(data)
	s.mu.Unlock()
	return nil
}

// Save normalizes and validates next, then replaces the in-memory settings
// and writes them to the slot. Invalid settings are never persisted.
func (s *Store) Save(ctx context.Context, next Settings) error {
	next = next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("settings: save %s: %w", s.key, err)
	}

	s.mu.Lock()
	s.current = next
	s.revision = revisionOf(data)
	s.mu.Unlock()
	return nil
}

// Watch forwards change notifications for the store's slot.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	return s.backend.Watch(ctx, s.key)
}

func revisionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
