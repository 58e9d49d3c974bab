package schedule

import (
	"testing"
	"time"

	"github.com/classdeck/classdeck/internal/document"
)

func entry(id string, weekday int, start, end string) document.ScheduleEntry {
	return document.ScheduleEntry{ID: id, RosterID: "r1", Weekday: weekday, Start: start, End: end}
}

// monday is a known Monday used across the tests.
var monday = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

// TestActiveVersion_LatestNotAfterDate verifies version selection picks
// the newest version whose validity has begun.
func TestActiveVersion_LatestNotAfterDate(t *testing.T) {
	doc := document.New()
	doc.ScheduleVersions = []document.ScheduleVersion{
		{ID: "old", ValidFrom: "2024-01-01"},
		{ID: "current", ValidFrom: "2024-08-01"},
		{ID: "future", ValidFrom: "2025-01-01"},
	}

	v := ActiveVersion(doc, monday)
	if v == nil || v.ID != "current" {
		t.Fatalf("expected version 'current', got %+v", v)
	}
}

// TestActiveVersion_SkipsDeleted verifies tombstoned versions are never
// selected.
func TestActiveVersion_SkipsDeleted(t *testing.T) {
	doc := document.New()
	deleted := document.ScheduleVersion{ID: "newer", ValidFrom: "2024-08-01"}
	deleted.MarkDeleted(monday)
	doc.ScheduleVersions = []document.ScheduleVersion{
		{ID: "older", ValidFrom: "2024-01-01"},
		deleted,
	}

	v := ActiveVersion(doc, monday)
	if v == nil || v.ID != "older" {
		t.Fatalf("expected deleted version skipped, got %+v", v)
	}
}

// TestActiveVersion_NoneApplies verifies a date before every version
// yields nil.
func TestActiveVersion_NoneApplies(t *testing.T) {
	doc := document.New()
	doc.ScheduleVersions = []document.ScheduleVersion{{ID: "v", ValidFrom: "2025-01-01"}}

	if v := ActiveVersion(doc, monday); v != nil {
		t.Fatalf("expected no active version, got %+v", v)
	}
}

// TestEntriesFor_FiltersAndSorts verifies weekday filtering, tombstone
// filtering, and start-time ordering.
func TestEntriesFor_FiltersAndSorts(t *testing.T) {
	doc := document.New()
	gone := entry("gone", 0, "07:00", "07:45")
	gone.MarkDeleted(monday)
	doc.ScheduleVersions = []document.ScheduleVersion{{
		ID:        "v",
		ValidFrom: "2024-08-01",
		Entries: []document.ScheduleEntry{
			entry("second", 0, "10:00", "10:45"),
			entry("first", 0, "08:00", "08:45"),
			entry("tuesday", 1, "08:00", "08:45"),
			gone,
		},
	}}

	got := EntriesFor(doc, monday)
	if len(got) != 2 {
		t.Fatalf("expected 2 Monday entries, got %d", len(got))
	}
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("entries not sorted by start time: %s, %s", got[0].ID, got[1].ID)
	}
}

// TestEntriesFor_FlatFallback verifies documents without versions fall
// back to the flat entry list.
func TestEntriesFor_FlatFallback(t *testing.T) {
	doc := document.New()
	doc.ScheduleEntries = []document.ScheduleEntry{entry("e1", 0, "08:00", "08:45")}

	got := EntriesFor(doc, monday)
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("expected flat fallback entry, got %+v", got)
	}
}

// TestEntriesFor_WeekdayMapping verifies Go weekdays map onto the
// document's Monday-based numbering.
func TestEntriesFor_WeekdayMapping(t *testing.T) {
	doc := document.New()
	doc.ScheduleEntries = []document.ScheduleEntry{entry("sun", 6, "10:00", "10:45")}

	sunday := monday.AddDate(0, 0, -1)
	got := EntriesFor(doc, sunday)
	if len(got) != 1 {
		t.Fatalf("expected Sunday entry at weekday 6, got %d entries", len(got))
	}
}
