package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation used by tests and by
// offline development. Snapshots are delivered to all subscribers of the
// written user, mirroring how the document service broadcasts changes to
// every device of a session.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	subs   map[string][]*memorySub
	puts   map[string]int
	putErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]any),
		subs: make(map[string][]*memorySub),
		puts: make(map[string]int),
	}
}

// Put implements Store. The payload is deep-copied and server timestamp
// sentinels are resolved before storing.
func (m *MemoryStore) Put(ctx context.Context, userID string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return m.putErr
	}

	stored := resolveServerTimestamps(copyPayload(payload), time.Now()).(map[string]any)
	m.docs[userID] = stored
	m.puts[userID]++

	snap := Snapshot{Exists: true, Data: copyPayload(stored)}
	for _, sub := range m.subs[userID] {
		sub.deliver(snap)
	}
	return nil
}

// Subscribe implements Store. The current state (possibly Exists=false)
// is delivered immediately.
func (m *MemoryStore) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &memorySub{
		store:  m,
		userID: userID,
		snaps:  make(chan Snapshot, 16),
		errs:   make(chan error, 4),
	}
	m.subs[userID] = append(m.subs[userID], sub)

	if doc, ok := m.docs[userID]; ok {
		sub.deliver(Snapshot{Exists: true, Data: copyPayload(doc)})
	} else {
		sub.deliver(Snapshot{Exists: false})
	}
	return sub, nil
}

// Inject delivers an arbitrary snapshot to all subscribers of the user
// without changing the stored document. Test hook for simulating remote
// events from other devices.
func (m *MemoryStore) Inject(userID string, snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs[userID] {
		sub.deliver(snap)
	}
}

// SetDocument replaces the stored document for a user without notifying
// subscribers. Test hook for pre-seeding remote state.
func (m *MemoryStore) SetDocument(userID string, payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = copyPayload(payload)
}

// Document returns a copy of the stored document for a user, or nil.
func (m *MemoryStore) Document(userID string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userID]
	if !ok {
		return nil
	}
	return copyPayload(doc)
}

// PutCount returns how many writes have been accepted for a user.
func (m *MemoryStore) PutCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[userID]
}

// FailPuts makes subsequent Put calls return err. Pass nil to restore
// normal operation.
func (m *MemoryStore) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

type memorySub struct {
	store  *MemoryStore
	userID string
	snaps  chan Snapshot
	errs   chan error
	once   sync.Once
}

func (s *memorySub) Snapshots() <-chan Snapshot { return s.snaps }
func (s *memorySub) Errors() <-chan error       { return s.errs }

func (s *memorySub) Close() error {
	s.once.Do(func() {
		m := s.store
		m.mu.Lock()
		subs := m.subs[s.userID]
		for i, sub := range subs {
			if sub == s {
				m.subs[s.userID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(s.snaps)
		close(s.errs)
	})
	return nil
}

// deliver sends without blocking; a subscriber that stops draining loses
// intermediate snapshots, which matches realtime semantics where only the
// latest state matters.
func (s *memorySub) deliver(snap Snapshot) {
	select {
	case s.snaps <- snap:
	default:
	}
}

// copyPayload deep-copies a JSON-shaped payload.
func copyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("remote: payload not JSON-encodable: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("remote: payload copy: %v", err))
	}
	return out
}

// resolveServerTimestamps walks a payload and replaces every server
// timestamp sentinel with the store's native timestamp shape.
func resolveServerTimestamps(v any, now time.Time) any {
	switch val := v.(type) {
	case map[string]any:
		if isServerTimestamp(val) {
			return map[string]any{
				"seconds":     float64(now.Unix()),
				"nanoseconds": float64(now.Nanosecond()),
			}
		}
		for k, elem := range val {
			val[k] = resolveServerTimestamps(elem, now)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = resolveServerTimestamps(elem, now)
		}
		return val
	default:
		return v
	}
}
