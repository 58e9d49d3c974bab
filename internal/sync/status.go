package sync

import "strings"

// Status is the coarse persistence state surfaced to the UI. No error is
// ever thrown across the controller boundary; failures show up here, with
// a human-readable hint alongside.
type Status int

const (
	// StatusSaved means local cache and, when signed in, the remote
	// document reflect the current in-memory state.
	StatusSaved Status = iota

	// StatusPending means a mutation happened and the debounce timer is
	// running; nothing has been written yet.
	StatusPending

	// StatusSaving means the debounce fired and a write is in flight.
	StatusSaving

	// StatusError means the last write failed. Local-only persistence
	// keeps working; the next mutation retries the remote write.
	StatusError
)

// String returns the status as the UI renders it.
func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusPending:
		return "pending"
	case StatusSaving:
		return "saving"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// hintFor maps a transport error to a short human-readable hint.
func hintFor(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "permission-denied"):
		return "cloud sync rejected: sign in again"
	case strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "dial"):
		return "cloud unreachable: changes are kept locally"
	default:
		return "cloud sync failed: will retry on next change"
	}
}
