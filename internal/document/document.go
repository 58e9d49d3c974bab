// Package document defines the AppDocument aggregate that classdeck keeps
// in memory, in the local cache, and in the remote store.
//
// The aggregate holds named collections of identifiable, soft-deletable
// records plus a flat settings record and a profile record. The in-memory
// copy owned by the running device is authoritative during a session; the
// local cache and the remote document are copies of it.
package document

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tombstone marks a record as soft-deleted so the deletion can propagate
// to other devices. A tombstoned record stays in its collection; only
// records whose deletion never needs cross-device effect may be removed
// outright.
type Tombstone struct {
	Deleted   bool   `json:"deleted,omitempty"`
	DeletedAt string `json:"deletedAt,omitempty"` // ISO-8601
}

// IsDeleted reports whether the record carries a tombstone.
func (t Tombstone) IsDeleted() bool { return t.Deleted }

// TombstonedAt returns the ISO-8601 deletion timestamp, or "" if the
// record is not tombstoned.
func (t Tombstone) TombstonedAt() string { return t.DeletedAt }

// MarkDeleted tombstones the record at the given time.
func (t *Tombstone) MarkDeleted(at time.Time) {
	t.Deleted = true
	t.DeletedAt = at.UTC().Format(time.RFC3339)
}

// NewID returns a fresh globally-unique record identifier.
// Identifiers never change across a record's lifetime.
func NewID() string { return uuid.NewString() }

// School is a workplace the user teaches at.
type School struct {
	Tombstone
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Archived bool   `json:"archived,omitempty"`
}

// RecordID implements merge.Record.
func (r School) RecordID() string { return r.ID }

// Student is a pupil known to the user, independent of class membership.
type Student struct {
	Tombstone
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Note      string `json:"note,omitempty"`
}

func (r Student) RecordID() string { return r.ID }

// Roster is a class: a named group of students at a school.
type Roster struct {
	Tombstone
	ID         string   `json:"id"`
	SchoolID   string   `json:"schoolId"`
	Name       string   `json:"name"`
	Subject    string   `json:"subject,omitempty"`
	StudentIDs []string `json:"studentIds,omitempty"`
}

func (r Roster) RecordID() string { return r.ID }

// ScheduleEntry is a recurring lesson slot in the weekly schedule.
type ScheduleEntry struct {
	Tombstone
	ID       string `json:"id"`
	RosterID string `json:"rosterId"`
	Weekday  int    `json:"weekday"` // 0 = Monday
	Start    string `json:"start"`   // "08:00"
	End      string `json:"end"`     // "08:45"
	Room     string `json:"room,omitempty"`
}

func (r ScheduleEntry) RecordID() string { return r.ID }

// ScheduleVersion is a dated snapshot of the weekly schedule. The version
// with the latest ValidFrom not after a given date is the active one for
// that date.
type ScheduleVersion struct {
	Tombstone
	ID        string          `json:"id"`
	ValidFrom string          `json:"validFrom"` // "2024-09-01"
	Entries   []ScheduleEntry `json:"entries"`
}

func (r ScheduleVersion) RecordID() string { return r.ID }

// LessonLog records what happened in a single lesson.
type LessonLog struct {
	Tombstone
	ID       string `json:"id"`
	RosterID string `json:"rosterId"`
	Date     string `json:"date"` // "2024-09-12"
	Topic    string `json:"topic,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Homework string `json:"homework,omitempty"`
}

func (r LessonLog) RecordID() string { return r.ID }

// Calendar is a named event calendar.
type Calendar struct {
	Tombstone
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

func (r Calendar) RecordID() string { return r.ID }

// CalendarEvent is a dated event on a calendar.
type CalendarEvent struct {
	Tombstone
	ID         string `json:"id"`
	CalendarID string `json:"calendarId,omitempty"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	EndDate    string `json:"endDate,omitempty"`
	AllDay     bool   `json:"allDay,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func (r CalendarEvent) RecordID() string { return r.ID }

// Reminder is a standalone to-do with an optional due time.
type Reminder struct {
	Tombstone
	ID    string `json:"id"`
	Title string `json:"title"`
	DueAt string `json:"dueAt,omitempty"` // ISO-8601
	Done  bool   `json:"done,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func (r Reminder) RecordID() string { return r.ID }

// Grade is a single mark given to a student.
type Grade struct {
	Tombstone
	ID           string  `json:"id"`
	StudentID    string  `json:"studentId"`
	RosterID     string  `json:"rosterId"`
	AssessmentID string  `json:"assessmentId,omitempty"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight,omitempty"`
	Date         string  `json:"date,omitempty"`
	Comment      string  `json:"comment,omitempty"`
}

func (r Grade) RecordID() string { return r.ID }

// Assessment is a user-defined graded event (test, presentation, ...).
type Assessment struct {
	Tombstone
	ID        string  `json:"id"`
	RosterID  string  `json:"rosterId"`
	Name      string  `json:"name"`
	Date      string  `json:"date,omitempty"`
	MaxPoints float64 `json:"maxPoints,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
}

func (r Assessment) RecordID() string { return r.ID }

// GradingConfig holds per-class grading rules.
type GradingConfig struct {
	Tombstone
	ID            string             `json:"id"`
	RosterID      string             `json:"rosterId"`
	Scale         string             `json:"scale,omitempty"` // "1-6", "points", "percent"
	Weights       map[string]float64 `json:"weights,omitempty"`
	PassThreshold float64            `json:"passThreshold,omitempty"`
}

func (r GradingConfig) RecordID() string { return r.ID }

// AdvancedModes toggles optional feature areas of the application.
type AdvancedModes struct {
	Gradebook  bool `json:"gradebook"`
	Attendance bool `json:"attendance"`
	Reminders  bool `json:"reminders"`
}

// Settings is the flat per-user settings record. It is not merged per
// record; on conflict the remote copy wins field-by-field via the
// sanitizer's defaults overlay.
type Settings struct {
	Theme                string        `json:"theme"`       // "system", "light", "dark"
	AccentColor          string        `json:"accentColor"` // hex
	WeekStart            string        `json:"weekStart"`   // "monday" or "sunday"
	ShowWeekends         bool          `json:"showWeekends"`
	DefaultLessonMinutes int           `json:"defaultLessonMinutes"`
	AdvancedModes        AdvancedModes `json:"advancedModes"`
}

// Profile holds display metadata about the signed-in user.
type Profile struct {
	DisplayName     string `json:"displayName,omitempty"`
	Email           string `json:"email,omitempty"`
	SchoolYearStart string `json:"schoolYearStart,omitempty"` // "2024-08-01"
}

// AppDocument is the full aggregate of a user's data.
type AppDocument struct {
	Schools          []School          `json:"schools"`
	Students         []Student         `json:"students"`
	Rosters          []Roster          `json:"rosters"`
	ScheduleEntries  []ScheduleEntry   `json:"scheduleEntries"`
	ScheduleVersions []ScheduleVersion `json:"scheduleVersions"`
	LessonLogs       []LessonLog       `json:"lessonLogs"`
	CalendarEvents   []CalendarEvent   `json:"calendarEvents"`
	Calendars        []Calendar        `json:"calendars"`
	Reminders        []Reminder        `json:"reminders"`
	Grades           []Grade           `json:"grades"`
	Assessments      []Assessment      `json:"assessments"`
	GradingConfigs   []GradingConfig   `json:"gradingConfigs"`
	Settings         Settings          `json:"settings"`
	Profile          Profile           `json:"profile"`
}

// DefaultSettings returns the fixed settings defaults that the sanitizer
// overlays remote payload values onto.
func DefaultSettings() Settings {
	return Settings{
		Theme:                "system",
		AccentColor:          "#3f51b5",
		WeekStart:            "monday",
		ShowWeekends:         false,
		DefaultLessonMinutes: 45,
		AdvancedModes: AdvancedModes{
			Gradebook:  true,
			Attendance: false,
			Reminders:  true,
		},
	}
}

// New returns an empty AppDocument with all collections initialized and
// default settings applied.
func New() *AppDocument {
	doc := &AppDocument{Settings: DefaultSettings()}
	doc.Normalize()
	return doc
}

// Normalize replaces nil collections with empty ones so that the canonical
// JSON encoding of a document is stable regardless of how it was built.
func (d *AppDocument) Normalize() {
	if d.Schools == nil {
		d.Schools = []School{}
	}
	if d.Students == nil {
		d.Students = []Student{}
	}
	if d.Rosters == nil {
		d.Rosters = []Roster{}
	}
	if d.ScheduleEntries == nil {
		d.ScheduleEntries = []ScheduleEntry{}
	}
	if d.ScheduleVersions == nil {
		d.ScheduleVersions = []ScheduleVersion{}
	}
	if d.LessonLogs == nil {
		d.LessonLogs = []LessonLog{}
	}
	if d.CalendarEvents == nil {
		d.CalendarEvents = []CalendarEvent{}
	}
	if d.Calendars == nil {
		d.Calendars = []Calendar{}
	}
	if d.Reminders == nil {
		d.Reminders = []Reminder{}
	}
	if d.Grades == nil {
		d.Grades = []Grade{}
	}
	if d.Assessments == nil {
		d.Assessments = []Assessment{}
	}
	if d.GradingConfigs == nil {
		d.GradingConfigs = []GradingConfig{}
	}
}

// HasPrimaryData reports whether any primary collection is non-empty.
// Settings and profile alone do not count: a document that only differs
// in settings from a fresh one is still "empty" for the purposes of the
// first-sync upstream protection check.
func (d *AppDocument) HasPrimaryData() bool {
	return len(d.Schools) > 0 ||
		len(d.Students) > 0 ||
		len(d.Rosters) > 0 ||
		len(d.ScheduleEntries) > 0 ||
		len(d.ScheduleVersions) > 0 ||
		len(d.LessonLogs) > 0 ||
		len(d.CalendarEvents) > 0 ||
		len(d.Grades) > 0
}

// Clone returns a deep copy of the document via a JSON round-trip.
func (d *AppDocument) Clone() *AppDocument {
	data, err := json.Marshal(d)
	if err != nil {
		// The document contains only JSON-encodable types.
		panic("document: clone marshal: " + err.Error())
	}
	out := New()
	if err := json.Unmarshal(data, out); err != nil {
		panic("document: clone unmarshal: " + err.Error())
	}
	out.Normalize()
	return out
}

// Encode returns the canonical JSON encoding of the document: collections
// normalized, unset optional fields elided. Two documents with the same
// content always encode to the same bytes, which is what the echo
// canceller's structural comparison relies on.
func Encode(d *AppDocument) []byte {
	c := d.Clone()
	data, err := json.Marshal(c)
	if err != nil {
		panic("document: encode: " + err.Error())
	}
	return data
}

// Decode parses a canonical or cached JSON encoding of a document.
// Unknown fields are tolerated; collections are normalized.
func Decode(data []byte) (*AppDocument, error) {
	doc := New()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}
