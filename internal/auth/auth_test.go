package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestSaveLoadClear exercises the session file round trip.
func TestSaveLoadClear(t *testing.T) {
	dir := t.TempDir()

	sess, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess != nil {
		t.Fatal("expected no session in a fresh directory")
	}

	want := &Session{UserID: "teacher@example.org", Email: "teacher@example.org", Token: "tok"}
	if err := Save(dir, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, SessionFileName))
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("session file should be 0600, got %v", info.Mode().Perm())
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.UserID != want.UserID || got.Token != want.Token {
		t.Errorf("loaded session mismatch: %+v", got)
	}

	if err := Clear(dir); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if sess, _ := Load(dir); sess != nil {
		t.Error("expected no session after Clear")
	}
	if err := Clear(dir); err != nil {
		t.Errorf("Clear should be idempotent, got %v", err)
	}
}

// TestSignal_DeliversTransitions verifies the in-process signal delivers
// sessions in order and tolerates double Close.
func TestSignal_DeliversTransitions(t *testing.T) {
	s := NewSignal()

	s.Set(&Session{UserID: "a"})
	s.Set(nil)

	if got := <-s.Sessions(); got == nil || got.UserID != "a" {
		t.Errorf("expected session a, got %+v", got)
	}
	if got := <-s.Sessions(); got != nil {
		t.Errorf("expected nil transition, got %+v", got)
	}

	s.Close()
	s.Close()
	if _, ok := <-s.Sessions(); ok {
		t.Error("expected closed channel after Close")
	}
}

// waitSession receives a transition with a timeout.
func waitSession(t *testing.T, ch <-chan *Session) *Session {
	t.Helper()
	select {
	case sess := <-ch:
		return sess
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session transition")
		return nil
	}
}

// TestFileWatcher_EmitsOnLoginAndLogout verifies the watcher translates
// session file changes into edge-triggered transitions.
func TestFileWatcher_EmitsOnLoginAndLogout(t *testing.T) {
	dir := t.TempDir()

	fw, err := WatchDir(dir, nil)
	if err != nil {
		t.Fatalf("WatchDir failed: %v", err)
	}
	defer fw.Close()

	// Initial edge: signed out.
	if sess := waitSession(t, fw.Sessions()); sess != nil {
		t.Errorf("expected initial nil session, got %+v", sess)
	}

	if err := Save(dir, &Session{UserID: "teacher@example.org"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if sess := waitSession(t, fw.Sessions()); sess == nil || sess.UserID != "teacher@example.org" {
		t.Errorf("expected sign-in transition, got %+v", sess)
	}

	if err := Clear(dir); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if sess := waitSession(t, fw.Sessions()); sess != nil {
		t.Errorf("expected sign-out transition, got %+v", sess)
	}
}

// TestFileWatcher_TokenRefreshIsNotAnEdge verifies that rewriting the
// file for the same user produces no transition.
func TestFileWatcher_TokenRefreshIsNotAnEdge(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &Session{UserID: "teacher@example.org", Token: "old"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fw, err := WatchDir(dir, nil)
	if err != nil {
		t.Fatalf("WatchDir failed: %v", err)
	}
	defer fw.Close()

	if sess := waitSession(t, fw.Sessions()); sess == nil {
		t.Fatal("expected initial signed-in session")
	}

	// Same identity, new token.
	if err := Save(dir, &Session{UserID: "teacher@example.org", Token: "new"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	select {
	case sess := <-fw.Sessions():
		t.Errorf("token refresh must not emit a transition, got %+v", sess)
	case <-time.After(300 * time.Millisecond):
	}
}
