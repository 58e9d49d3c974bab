package document

import (
	"encoding/json"
	"time"
)

// Envelope keys carried by the remote document but never part of the
// AppDocument itself. The sanitizer strips them before decoding.
const (
	EnvelopeUpdatedAt = "updatedAt"
	EnvelopeWiped     = "wiped"
	EnvelopeWipedAt   = "wipedAt"
)

// migrationEpoch dates the synthesized initial schedule version for
// documents that predate schedule versioning. The version id is fixed so
// the migration is deterministic: sanitizing the same payload twice must
// yield structurally equal documents or echo detection breaks.
const (
	migrationEpoch     = "1970-01-01"
	migrationVersionID = "schedule-version-initial"
)

// Sanitize normalizes a raw remote payload into a well-formed AppDocument.
//
// It converts remote-native timestamp values into ISO-8601 strings, strips
// the transport envelope (updatedAt, wiped, wipedAt), backfills absent
// collections with empty ones and absent settings fields with defaults,
// and runs the one-time schedule-version migration.
//
// Malformed input never produces an error; missing or invalid fields
// degrade to defaults. The input map is not modified.
func Sanitize(raw map[string]any) *AppDocument {
	doc := New()
	if raw == nil {
		return doc
	}

	cleaned := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case EnvelopeUpdatedAt, EnvelopeWiped, EnvelopeWipedAt:
			continue
		}
		cleaned[k] = normalizeTimestamps(v)
	}

	data, err := json.Marshal(cleaned)
	if err != nil {
		return doc
	}

	// Decoding over a defaults-initialized document gives the overlay
	// semantics: payload values win field-by-field, absent fields keep
	// their defaults. A payload field of the wrong type fails the whole
	// decode, in which case the defaults stand.
	if err := json.Unmarshal(data, doc); err != nil {
		doc = New()
	}
	doc.Normalize()

	migrateScheduleVersions(doc)
	return doc
}

// normalizeTimestamps walks the payload and converts any remote-native
// timestamp object into an ISO-8601 string. It recurses into arrays and
// plain objects and leaves primitives untouched.
func normalizeTimestamps(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if ts, ok := timestampValue(val); ok {
			return ts
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeTimestamps(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeTimestamps(elem)
		}
		return out
	default:
		return v
	}
}

// timestampValue recognizes the remote store's native timestamp shape,
// an object of exactly {seconds, nanoseconds}, and renders it as an
// ISO-8601 string in UTC.
func timestampValue(m map[string]any) (string, bool) {
	if len(m) != 2 {
		return "", false
	}
	secs, okS := m["seconds"].(float64)
	nanos, okN := m["nanoseconds"].(float64)
	if !okS || !okN {
		return "", false
	}
	return time.Unix(int64(secs), int64(nanos)).UTC().Format(time.RFC3339), true
}

// migrateScheduleVersions synthesizes a single initial schedule version
// when schedule entries exist but no version snapshots do, so that
// version-aware reads never see an empty version list. The migration only
// mutates the returned document; persisting it is the caller's concern.
func migrateScheduleVersions(doc *AppDocument) {
	if len(doc.ScheduleEntries) == 0 || len(doc.ScheduleVersions) > 0 {
		return
	}
	entries := make([]ScheduleEntry, len(doc.ScheduleEntries))
	copy(entries, doc.ScheduleEntries)
	doc.ScheduleVersions = []ScheduleVersion{{
		ID:        migrationVersionID,
		ValidFrom: migrationEpoch,
		Entries:   entries,
	}}
}

// WipedFlag reports whether a raw remote payload carries the hard-reset
// signal. The flag lives in the transport envelope, so it must be read
// before sanitizing.
func WipedFlag(raw map[string]any) bool {
	if raw == nil {
		return false
	}
	wiped, _ := raw[EnvelopeWiped].(bool)
	return wiped
}
