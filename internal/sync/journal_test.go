package sync

import (
	"os"
	"path/filepath"
	"testing"
)

// TestJournal_RecordAndTail verifies entries append and tail in order.
func TestJournal_RecordAndTail(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "journal.jsonl"))

	j.Record(EventSignedIn, "teacher@example.org")
	j.Record(EventAccepted, "")
	j.Record(EventUploaded, "")

	entries, err := j.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Event != EventSignedIn || entries[2].Event != EventUploaded {
		t.Error("entries out of order")
	}
	if entries[0].Detail != "teacher@example.org" {
		t.Errorf("detail lost: %q", entries[0].Detail)
	}
}

// TestJournal_TailLimits verifies Tail keeps only the most recent n.
func TestJournal_TailLimits(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "journal.jsonl"))
	for i := 0; i < 5; i++ {
		j.Record(EventLocalSave, "")
	}
	j.Record(EventUploaded, "")

	entries, err := j.Tail(2)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Event != EventUploaded {
		t.Error("expected the newest entry last")
	}
}

// TestJournal_MissingFile verifies Tail of an absent journal is empty,
// not an error.
func TestJournal_MissingFile(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "journal.jsonl"))
	entries, err := j.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

// TestJournal_SkipsMalformedLines verifies corrupt lines are ignored.
func TestJournal_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := NewJournal(path)
	j.Record(EventAccepted, "")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatalf("failed to corrupt journal: %v", err)
	}
	f.Close()

	j.Record(EventUploaded, "")

	entries, err := j.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected corrupt line skipped, got %d entries", len(entries))
	}
}

// TestJournal_NilSafe verifies a nil journal swallows records.
func TestJournal_NilSafe(t *testing.T) {
	var j *Journal
	j.Record(EventAccepted, "") // must not panic
}
