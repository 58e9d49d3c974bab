package sync

import (
	"bytes"

	"github.com/classdeck/classdeck/internal/document"
)

// isEcho reports whether a sanitized inbound snapshot is merely the
// remote store confirming a write this device just made.
//
// The comparison is structural: the candidate's canonical JSON encoding
// against the last-saved encoding. The canonical form collapses nil
// versus empty collections and unset optional fields, so a document that
// round-tripped through the remote store still compares equal to what
// was written.
//
// lastSaved is nil at session start (nothing written or accepted yet),
// in which case nothing is an echo.
func isEcho(candidate *document.AppDocument, lastSaved []byte) bool {
	if lastSaved == nil {
		return false
	}
	return bytes.Equal(document.Encode(candidate), lastSaved)
}
