// Package schedule answers "what is the timetable for this date" against
// the versioned weekly schedule in the document.
package schedule

import (
	"sort"
	"time"

	"github.com/classdeck/classdeck/internal/document"
)

// ActiveVersion returns the schedule version in effect on the given date:
// the live version with the latest ValidFrom not after the date. Returns
// nil when no version applies.
func ActiveVersion(doc *document.AppDocument, date time.Time) *document.ScheduleVersion {
	day := date.Format("2006-01-02")

	var active *document.ScheduleVersion
	for i := range doc.ScheduleVersions {
		v := &doc.ScheduleVersions[i]
		if v.IsDeleted() || v.ValidFrom > day {
			continue
		}
		if active == nil || v.ValidFrom > active.ValidFrom {
			active = v
		}
	}
	return active
}

// EntriesFor returns the live lesson slots for the given date, ordered by
// start time. Versioned schedules take precedence; the flat entry list is
// the fallback for documents that predate schedule versioning.
func EntriesFor(doc *document.AppDocument, date time.Time) []document.ScheduleEntry {
	weekday := int(date.Weekday()+6) % 7 // 0 = Monday

	source := doc.ScheduleEntries
	if v := ActiveVersion(doc, date); v != nil {
		source = v.Entries
	}

	var out []document.ScheduleEntry
	for _, e := range source {
		if e.IsDeleted() || e.Weekday != weekday {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
