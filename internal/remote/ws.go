package remote

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WSStore is a Store backed by a classdeck document server over
// WebSocket. Subscriptions hold a long-lived connection; writes use a
// short-lived one.
//
// Like the hosted SDKs this store surfaces optimistic local writes: when
// a Put is issued while a subscription for the same user is open, the
// subscription first receives the written payload as a snapshot with
// HasPendingWrites=true, then the server's committed snapshot once the
// write is acknowledged and broadcast.
type WSStore struct {
	url    string
	token  string
	logger *log.Logger

	mu   sync.Mutex
	subs map[string]*wsSub
}

// NewWSStore creates a store client for the given ws:// or wss:// URL.
// If logger is nil, a default logger writing to stderr is used.
func NewWSStore(url, token string, logger *log.Logger) *WSStore {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &WSStore{
		url:    url,
		token:  token,
		logger: logger,
		subs:   make(map[string]*wsSub),
	}
}

// Put implements Store.
func (s *WSStore) Put(ctx context.Context, userID string, payload map[string]any) error {
	// Optimistic pending snapshot for the local subscriber, delivered
	// before the network write so a device observes its own writes
	// immediately, even offline.
	s.mu.Lock()
	if sub, ok := s.subs[userID]; ok {
		sub.deliver(Snapshot{Exists: true, HasPendingWrites: true, Data: copyPayload(payload)})
	}
	s.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial document server: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	req := wireMessage{Type: msgPut, User: userID, Token: s.token, Payload: payload}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		return fmt.Errorf("failed to send document write: %w", err)
	}

	var resp wireMessage
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		return fmt.Errorf("failed to read write acknowledgment: %w", err)
	}
	if resp.Type == msgError {
		return fmt.Errorf("document server rejected write: %s", resp.Error)
	}
	if resp.Type != msgAck {
		return fmt.Errorf("unexpected response type %q to write", resp.Type)
	}
	return nil
}

// Subscribe implements Store. The returned subscription owns its
// connection; Close tears it down.
func (s *WSStore) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial document server: %w", err)
	}

	req := wireMessage{Type: msgSubscribe, User: userID, Token: s.token}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return nil, fmt.Errorf("failed to send subscribe request: %w", err)
	}

	sub := &wsSub{
		store:  s,
		userID: userID,
		conn:   conn,
		snaps:  make(chan Snapshot, 16),
		errs:   make(chan error, 4),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.subs[userID]; ok {
		// One live subscription per user; the controller closes the old
		// one on auth transitions, but guard against leaks anyway.
		go prev.Close()
	}
	s.subs[userID] = sub
	s.mu.Unlock()

	sub.wg.Add(1)
	go sub.readLoop(ctx)
	return sub, nil
}

type wsSub struct {
	store  *WSStore
	userID string
	conn   *websocket.Conn
	snaps  chan Snapshot
	errs   chan error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func (s *wsSub) Snapshots() <-chan Snapshot { return s.snaps }
func (s *wsSub) Errors() <-chan error       { return s.errs }

// Close implements Subscription. Blocks until the read loop has exited.
func (s *wsSub) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "")
		s.wg.Wait()

		s.store.mu.Lock()
		if s.store.subs[s.userID] == s {
			delete(s.store.subs, s.userID)
		}
		s.store.mu.Unlock()

		close(s.snaps)
		close(s.errs)
	})
	return nil
}

// readLoop converts incoming frames into snapshots until the connection
// closes or the subscription is torn down.
func (s *wsSub) readLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		var msg wireMessage
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			select {
			case <-s.done:
			default:
				s.store.logger.Printf("Subscription read failed for %s: %v", s.userID, err)
				select {
				case s.errs <- err:
				default:
				}
			}
			return
		}

		switch msg.Type {
		case msgSnapshot:
			s.deliver(Snapshot{Exists: msg.Exists, Data: msg.Payload})
		case msgError:
			select {
			case s.errs <- fmt.Errorf("document server: %s", msg.Error):
			default:
			}
		default:
			s.store.logger.Printf("Ignoring unexpected frame type %q", msg.Type)
		}
	}
}

// deliver sends without blocking past a stuck consumer; only the latest
// state matters for realtime snapshots.
func (s *wsSub) deliver(snap Snapshot) {
	select {
	case <-s.done:
	case s.snaps <- snap:
	default:
		s.store.logger.Printf("Dropping snapshot for %s: subscriber not draining", s.userID)
	}
}

// WaitClosed is a test helper that blocks until the read loop exits or
// the timeout elapses.
func (s *wsSub) WaitClosed(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
