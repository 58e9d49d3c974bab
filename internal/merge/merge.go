// Package merge reconciles a remote collection with a local collection of
// identifiable, soft-deletable records.
//
// The policy is fixed: remote is authoritative for live content, local is
// authoritative only for pending deletions and for records the remote has
// never seen. Concurrent non-deletion edits to the same record on two
// devices are therefore resolved in favor of the remote copy; no
// field-level diffing is attempted.
package merge

// Record is the unit of merge: any collection element with a stable
// identifier and optional tombstone.
type Record interface {
	// RecordID returns the record's stable, globally-unique identifier.
	RecordID() string
	// IsDeleted reports whether the record is tombstoned.
	IsDeleted() bool
	// TombstonedAt returns the ISO-8601 deletion timestamp, or "" if the
	// record is not tombstoned.
	TombstonedAt() string
}

// Collections merges a local collection into a remote one, keyed by record
// identifier. The remote collection is the merge base.
//
// For each local record:
//   - absent from remote: inserted unconditionally (created on this
//     device, not yet uploaded)
//   - present and local is tombstoned:
//     remote live        -> local tombstone wins (pending deletion beats
//     untouched remote content)
//     remote tombstoned  -> later deletedAt wins, ties keep remote
//   - present and local is live: remote wins unconditionally
//
// Records hard-removed locally are simply invisible here, so hard removal
// never propagates across devices.
//
// Output order is remote order followed by new local records in local
// order; callers must not rely on it.
func Collections[T Record](remote, local []T) []T {
	out := make([]T, len(remote), len(remote)+len(local))
	copy(out, remote)

	index := make(map[string]int, len(remote))
	for i, r := range remote {
		index[r.RecordID()] = i
	}

	for _, l := range local {
		i, ok := index[l.RecordID()]
		if !ok {
			index[l.RecordID()] = len(out)
			out = append(out, l)
			continue
		}
		if !l.IsDeleted() {
			// Live local copy of a known record: remote wins.
			continue
		}
		r := out[i]
		if !r.IsDeleted() {
			out[i] = l
			continue
		}
		// Both tombstoned. ISO-8601 strings order lexically.
		if l.TombstonedAt() > r.TombstonedAt() {
			out[i] = l
		}
	}

	return out
}
