// Package auth provides the authentication signal the sync controller
// consumes: an edge-triggered stream of session changes, never polled.
//
// Sessions are established out-of-band (the `classdeck login` command)
// and persisted under the config directory; the daemon observes the
// session file so that logging in or out from another terminal takes
// effect without a restart.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Session identifies an authenticated user. UserID is the stable identity
// the remote document is addressed by; the rest is display metadata.
type Session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Token       string `json:"token,omitempty"`
}

// Watcher delivers session changes. A nil session means "no session".
type Watcher interface {
	// Sessions returns the channel of session transitions. The current
	// session (possibly nil) is delivered first.
	Sessions() <-chan *Session

	// Close stops the watcher and closes the channel.
	Close() error
}

// SessionFileName is the session file kept under the config directory.
const SessionFileName = "session.json"

// Save persists the session to dir. Mode 0600: the file carries a token.
func Save(dir string, sess *Session) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	path := filepath.Join(dir, SessionFileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads the persisted session from dir. Returns (nil, nil) when no
// session file exists.
func Load(dir string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(dir, SessionFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if sess.UserID == "" {
		return nil, nil
	}
	return &sess, nil
}

// Clear removes the persisted session. Returns nil if none exists.
func Clear(dir string) error {
	err := os.Remove(filepath.Join(dir, SessionFileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Signal is an in-process Watcher: callers push transitions with Set.
// It backs both the file watcher and controller tests.
type Signal struct {
	mu     sync.Mutex
	ch     chan *Session
	closed bool
}

// NewSignal creates a Signal with room for a few pending transitions.
func NewSignal() *Signal {
	return &Signal{ch: make(chan *Session, 8)}
}

// Set delivers a session transition. Drops the transition if the
// consumer is not draining; only the latest state matters.
func (s *Signal) Set(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- sess:
	default:
	}
}

// Sessions implements Watcher.
func (s *Signal) Sessions() <-chan *Session { return s.ch }

// Close implements Watcher. Safe to call more than once.
func (s *Signal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
