// Package session persists the sticky active agent and the last executed
// command across process restarts.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LastCommand records the most recent executed command for undo/repeat.
type LastCommand struct {
	Agent   string `json:"agent,omitempty"`
	Command string `json:"command"`
	Message string `json:"message"`
	// AgentPath pins undo to the directory the command actually wrote
	// to, so switching agents between a command and its undo still
	// reverses the right file.
	AgentPath string `json:"agent_path,omitempty"`
}

// record is the on-disk shape. Both fields are independently optional;
// either may be absent, as may the whole file.
type record struct {
	CurrentAgent *string      `json:"current_agent"`
	LastCommand  *LastCommand `json:"last_command,omitempty"`
}

// Store serializes access to the session file. Every mutation reads the
// current record, updates its own field, and writes the whole record
// back, so independent updates never clobber each other. A missing or
// corrupt file degrades to empty state; voice interaction must never
// hard-fail on a stale session file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("session file unreadable, treating as empty", "path", s.path, "err", err)
		}
		return record{}
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("session file corrupt, treating as empty", "path", s.path, "err", err)
		return record{}
	}
	return rec
}

func (s *Store) save(rec record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("session write: %w", err)
	}
	return nil
}

// CurrentAgent returns the sticky active agent, or "" when none is
// selected.
func (s *Store) CurrentAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.load()
	if rec.CurrentAgent == nil {
		return ""
	}
	return *rec.CurrentAgent
}

// SetCurrentAgent persists the active agent. The empty string selects the
// default (no-agent) context and is stored as an explicit null.
func (s *Store) SetCurrentAgent(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.load()
	if name == "" {
		rec.CurrentAgent = nil
	} else {
		rec.CurrentAgent = &name
	}
	return s.save(rec)
}

// LastCommand returns the last executed command, if any.
func (s *Store) LastCommand() (LastCommand, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.load()
	if rec.LastCommand == nil {
		return LastCommand{}, false
	}
	return *rec.LastCommand, true
}

// SetLastCommand overwrites the undo/repeat record.
func (s *Store) SetLastCommand(lc LastCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.load()
	rec.LastCommand = &lc
	return s.save(rec)
}

// ClearLastCommand removes the undo/repeat record, preserving the
// current agent. Called after a successful undo so a second undo cannot
// reverse an unrelated earlier entry.
func (s *Store) ClearLastCommand() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.load()
	rec.LastCommand = nil
	return s.save(rec)
}
