package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the current configuration snapshot. Readers get the
// snapshot lock-free; Reload parses the document first and swaps the
// pointer only on success, so a bad edit never leaves the daemon
// half-configured.
type Store struct {
	path string

	mu  sync.Mutex // serializes reloads
	cur atomic.Pointer[Config]
}

// NewStore creates a store for the document at path with an empty
// snapshot. Call Reload to populate it.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.cur.Store(&Config{})
	return s
}

// Current returns the active configuration snapshot. The returned value
// is shared and must not be mutated.
func (s *Store) Current() *Config {
	return s.cur.Load()
}

// Reload re-reads the document and swaps the snapshot. On error the
// previous snapshot stays in effect.
func (s *Store) Reload() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.cur.Store(cfg)
	return cfg, nil
}
