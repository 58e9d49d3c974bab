package sync

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JournalEntry is one sync decision, recorded as a JSONL line.
type JournalEntry struct {
	At     time.Time `json:"at"`
	Event  string    `json:"event"`
	Detail string    `json:"detail,omitempty"`
}

// Journal events recorded by the controller.
const (
	EventAccepted   = "accepted"    // inbound snapshot merged and adopted
	EventEcho       = "echo"        // inbound snapshot dropped as echo
	EventUploaded   = "uploaded"    // outbound write committed
	EventCreated    = "created"     // remote document created on first use
	EventWiped      = "wiped"       // hard-reset adopted, cache cleared
	EventProtected  = "protected"   // upstream protection forced an upload
	EventLocalSave  = "local-save"  // debounce fire wrote the local cache
	EventSyncError  = "sync-error"  // a write or subscribe failed
	EventSignedIn   = "signed-in"   // auth edge: session established
	EventSignedOut  = "signed-out"  // auth edge: session ended
)

// Journal is an append-only JSONL log of sync decisions, used by the
// status command. Append failures are silently ignored: the journal is
// diagnostics, never load-bearing.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal creates a journal writing to path. The parent directory is
// created on first append.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Record appends one entry.
func (j *Journal) Record(event, detail string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	entry := JournalEntry{At: time.Now().UTC(), Event: event, Detail: detail}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "%s\n", data)
}

// Tail returns up to n most recent entries, oldest first. Malformed
// lines are skipped.
func (j *Journal) Tail(n int) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
