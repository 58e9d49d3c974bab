// Package remote defines the remote document store that holds one
// document per authenticated identity, plus a realtime subscription
// delivering full document snapshots on every change.
//
// Three implementations are provided: a WebSocket client for a deployed
// document service, an in-process development server speaking the same
// protocol, and an in-memory store for tests.
package remote

import (
	"context"

	"github.com/classdeck/classdeck/internal/document"
)

// Snapshot is one realtime delivery from the store: the full document
// payload plus transport metadata.
type Snapshot struct {
	// Exists reports whether the remote document is present at all.
	// A subscription's first snapshot with Exists=false means first use.
	Exists bool

	// HasPendingWrites is true for locally-originated writes that the
	// server has not yet acknowledged. The controller treats such
	// snapshots (unless wiped) as its own in-flight echoes.
	HasPendingWrites bool

	// Data is the raw document payload, including the transport envelope
	// (updatedAt, wiped, wipedAt). Nil when Exists is false.
	Data map[string]any
}

// Wiped reports whether the snapshot carries the hard-reset signal.
func (s Snapshot) Wiped() bool { return document.WipedFlag(s.Data) }

// Subscription is a cancellable stream of document snapshots.
type Subscription interface {
	// Snapshots returns the channel delivering snapshots. The channel is
	// closed when the subscription is closed or fails permanently.
	Snapshots() <-chan Snapshot

	// Errors returns the channel delivering transport errors. Errors do
	// not terminate the stream by themselves.
	Errors() <-chan error

	// Close tears down the subscription and releases its resources.
	// Safe to call more than once.
	Close() error
}

// Store is the remote document store, addressed by the identity's stable
// user id under a fixed top-level collection.
type Store interface {
	// Put writes the full document payload for the user. The payload
	// should carry a ServerTimestamp() under the updatedAt envelope key;
	// the store resolves it to a server-assigned write timestamp.
	Put(ctx context.Context, userID string, payload map[string]any) error

	// Subscribe opens a realtime subscription to the user's document.
	// The first delivered snapshot reflects the current remote state,
	// including Exists=false when no document has ever been written.
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// serverTimestampKey marks a sentinel value the store replaces with its
// own write timestamp.
const serverTimestampKey = ".sv"

// ServerTimestamp returns the sentinel that Put payloads use to request a
// server-assigned write timestamp.
func ServerTimestamp() map[string]any {
	return map[string]any{serverTimestampKey: "timestamp"}
}

// isServerTimestamp recognizes the sentinel produced by ServerTimestamp.
func isServerTimestamp(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	kind, _ := m[serverTimestampKey].(string)
	return kind == "timestamp"
}
