package merge

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/classdeck/classdeck/internal/document"
)

func school(id, name string) document.School {
	return document.School{ID: id, Name: name}
}

func deletedSchool(id, name, at string) document.School {
	s := document.School{ID: id, Name: name}
	s.Deleted = true
	s.DeletedAt = at
	return s
}

// TestCollections_RemoteWinsLiveConflict verifies that when a record is
// live on both sides, the remote copy survives untouched.
func TestCollections_RemoteWinsLiveConflict(t *testing.T) {
	remote := []document.School{school("a", "Remote Name")}
	local := []document.School{school("a", "Local Name")}

	got := Collections(remote, local)

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Name != "Remote Name" {
		t.Errorf("expected remote copy to win, got %q", got[0].Name)
	}
}

// TestCollections_LocalOnlyAppended verifies that records existing only
// locally are appended to the output.
func TestCollections_LocalOnlyAppended(t *testing.T) {
	remote := []document.School{school("a", "A")}
	local := []document.School{school("a", "A"), school("b", "B")}

	got := Collections(remote, local)

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[1].ID != "b" {
		t.Errorf("expected local-only record appended last, got id %q", got[1].ID)
	}
}

// TestCollections_LocalTombstoneBeatsLiveRemote verifies that a local
// soft-deletion overrides a live remote copy, so deletions never
// resurrect.
func TestCollections_LocalTombstoneBeatsLiveRemote(t *testing.T) {
	remote := []document.School{school("a", "A")}
	local := []document.School{deletedSchool("a", "A", "2024-05-01T10:00:00Z")}

	got := Collections(remote, local)

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if !got[0].IsDeleted() {
		t.Error("expected local tombstone to override live remote record")
	}
	if got[0].TombstonedAt() != "2024-05-01T10:00:00Z" {
		t.Errorf("expected local deletion timestamp, got %q", got[0].TombstonedAt())
	}
}

// TestCollections_LiveLocalLosesToRemoteTombstone verifies the mirror
// case: a record deleted remotely stays deleted even if this device still
// holds a live copy.
func TestCollections_LiveLocalLosesToRemoteTombstone(t *testing.T) {
	remote := []document.School{deletedSchool("a", "A", "2024-05-01T10:00:00Z")}
	local := []document.School{school("a", "A")}

	got := Collections(remote, local)

	if len(got) != 1 || !got[0].IsDeleted() {
		t.Error("expected remote tombstone to survive a live local copy")
	}
}

// TestCollections_DoubleTombstoneLaterWins verifies that when both sides
// tombstoned the record, the later deletion timestamp is kept, and a tie
// keeps the remote copy.
func TestCollections_DoubleTombstoneLaterWins(t *testing.T) {
	early := "2024-05-01T10:00:00Z"
	late := "2024-06-01T10:00:00Z"

	tests := []struct {
		name      string
		remoteAt  string
		localAt   string
		wantLocal bool
	}{
		{"local later", early, late, true},
		{"remote later", late, early, false},
		{"tie keeps remote", early, early, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := []document.School{deletedSchool("a", "remote", tt.remoteAt)}
			local := []document.School{deletedSchool("a", "local", tt.localAt)}

			got := Collections(remote, local)
			if len(got) != 1 {
				t.Fatalf("expected 1 record, got %d", len(got))
			}

			wantName := "remote"
			if tt.wantLocal {
				wantName = "local"
			}
			if got[0].Name != wantName {
				t.Errorf("expected %s copy to win, got %q", wantName, got[0].Name)
			}
		})
	}
}

// TestCollections_Deterministic verifies that merging the same inputs
// twice yields identical output, including order.
func TestCollections_Deterministic(t *testing.T) {
	remote := []document.School{school("a", "A"), school("b", "B")}
	local := []document.School{school("c", "C"), school("a", "A2"), school("d", "D")}

	first := Collections(remote, local)
	second := Collections(remote, local)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("merge not deterministic (-first +second):\n%s", diff)
	}

	wantOrder := []string{"a", "b", "c", "d"}
	for i, id := range wantOrder {
		if first[i].ID != id {
			t.Errorf("position %d: expected %q, got %q", i, id, first[i].ID)
		}
	}
}

// TestCollections_Idempotent verifies that merging a tombstone-free
// collection with itself reproduces it exactly.
func TestCollections_Idempotent(t *testing.T) {
	coll := []document.School{school("a", "A"), school("b", "B")}

	got := Collections(coll, coll)
	if diff := cmp.Diff(coll, got); diff != "" {
		t.Errorf("self-merge must be identity (-want +got):\n%s", diff)
	}
}

// TestCollections_LocalEditCannotResurrectRemoteDeletion pins the case
// where one device edited a record that another device deleted: the
// remote tombstone survives untouched.
func TestCollections_LocalEditCannotResurrectRemoteDeletion(t *testing.T) {
	remote := []document.CalendarEvent{{
		Tombstone: document.Tombstone{Deleted: true, DeletedAt: "2024-03-01"},
		ID:        "a",
		Title:     "Math test",
		Date:      "2024-03-05",
	}}
	local := []document.CalendarEvent{{
		ID:    "a",
		Title: "Math test (rescheduled)",
		Date:  "2024-03-06",
	}}

	got := Collections(remote, local)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if !got[0].IsDeleted() || got[0].TombstonedAt() != "2024-03-01" {
		t.Error("remote deletion must survive a concurrent local edit")
	}
	if got[0].Title != "Math test" {
		t.Errorf("expected remote content kept, got %q", got[0].Title)
	}
}

// TestCollections_DisjointUnion verifies that merging disjoint sets loses
// nothing.
func TestCollections_DisjointUnion(t *testing.T) {
	remote := []document.School{school("a", "A")}
	local := []document.School{school("b", "B")}

	got := Collections(remote, local)
	if len(got) != 2 {
		t.Fatalf("expected union of disjoint sets, got %d records", len(got))
	}
}

// TestDocuments_MergesTheScenarioFromTwoDevices walks the canonical
// two-device scenario: device A deleted a class that device B still has
// live and added a student; the merged result honors the deletion and
// keeps the addition.
func TestDocuments_MergesTheScenarioFromTwoDevices(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	// Remote state: written by device B. Class "7b" live, no student yet.
	remote := document.New()
	remote.Rosters = []document.Roster{{ID: "7b", SchoolID: "s1", Name: "7b"}}

	// Local state: device A deleted "7b" and added a student while
	// offline.
	local := document.New()
	deleted := document.Roster{ID: "7b", SchoolID: "s1", Name: "7b"}
	deleted.MarkDeleted(now)
	local.Rosters = []document.Roster{deleted}
	local.Students = []document.Student{{ID: "st1", FirstName: "Mia", LastName: "K"}}

	got := Documents(remote, local)

	if len(got.Rosters) != 1 || !got.Rosters[0].IsDeleted() {
		t.Error("expected the locally deleted class to stay deleted")
	}
	if len(got.Students) != 1 || got.Students[0].ID != "st1" {
		t.Error("expected the locally added student to survive the merge")
	}
}

// TestDocuments_SettingsAndProfileFromRemote verifies that the flat
// settings and profile records are taken from the remote side wholesale.
func TestDocuments_SettingsAndProfileFromRemote(t *testing.T) {
	remote := document.New()
	remote.Settings.Theme = "dark"
	remote.Profile.DisplayName = "Remote Name"

	local := document.New()
	local.Settings.Theme = "light"
	local.Profile.DisplayName = "Local Name"

	got := Documents(remote, local)

	if got.Settings.Theme != "dark" {
		t.Errorf("expected remote settings, got theme %q", got.Settings.Theme)
	}
	if got.Profile.DisplayName != "Remote Name" {
		t.Errorf("expected remote profile, got %q", got.Profile.DisplayName)
	}
}

// TestDocuments_InputsNotMutated verifies that merging never modifies
// either input document.
func TestDocuments_InputsNotMutated(t *testing.T) {
	remote := document.New()
	remote.Schools = []document.School{school("a", "A")}
	local := document.New()
	local.Schools = []document.School{school("b", "B")}

	remoteBefore := document.Encode(remote)
	localBefore := document.Encode(local)

	Documents(remote, local)

	if string(document.Encode(remote)) != string(remoteBefore) {
		t.Error("remote input was mutated")
	}
	if string(document.Encode(local)) != string(localBefore) {
		t.Error("local input was mutated")
	}
}
