package remote

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// DevServer is an in-process document server speaking the WSStore
// protocol: one document per user, full-snapshot broadcast to every
// subscriber of that user on each write, server-assigned updatedAt.
//
// It backs the `classdeck devserver` command and the WebSocket client
// tests. Documents live in memory only.
type DevServer struct {
	addr     string
	token    string
	listener net.Listener
	server   *http.Server
	logger   *log.Logger

	mu   sync.Mutex
	docs map[string]map[string]any
	subs map[string]map[*websocket.Conn]chan wireMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DevServerConfig holds server configuration.
type DevServerConfig struct {
	// Addr to listen on, e.g. "127.0.0.1:9301". ":0" picks a free port.
	Addr string

	// Token, when non-empty, must match the token presented by clients.
	Token string

	// Logger for server activity (default: stderr logger).
	Logger *log.Logger
}

// NewDevServer creates a server; call Start to begin listening.
func NewDevServer(cfg DevServerConfig) *DevServer {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[devserver] ", log.LstdFlags)
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:9301"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DevServer{
		addr:   cfg.Addr,
		token:  cfg.Token,
		logger: cfg.Logger,
		docs:   make(map[string]map[string]any),
		subs:   make(map[string]map[*websocket.Conn]chan wireMessage),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins accepting connections. Non-blocking; use Stop to shut
// down.
func (s *DevServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	s.server = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	s.logger.Printf("Document server listening on %s", listener.Addr())
	return nil
}

// URL returns the ws:// URL clients should dial.
func (s *DevServer) URL() string {
	return "ws://" + s.listener.Addr().String()
}

// Stop shuts the server down and waits for connection handlers to exit.
func (s *DevServer) Stop() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Printf("Error shutting down server: %v", err)
	}

	s.wg.Wait()
	s.logger.Println("Document server stopped")
	return nil
}

// handleWS upgrades the connection and serves subscribe/put frames until
// the client disconnects.
func (s *DevServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Printf("Failed to accept websocket: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler exited")

	s.wg.Add(1)
	defer s.wg.Done()

	out := make(chan wireMessage, 16)
	var subscribedUser string
	defer func() {
		if subscribedUser != "" {
			s.dropSubscriber(subscribedUser, conn)
		}
	}()

	// Writer goroutine so broadcasts never block the read loop.
	writerCtx, cancelWriter := context.WithCancel(s.ctx)
	defer cancelWriter()
	go func() {
		for {
			select {
			case <-writerCtx.Done():
				return
			case msg := <-out:
				wctx, wcancel := context.WithTimeout(writerCtx, 5*time.Second)
				err := wsjson.Write(wctx, conn, msg)
				wcancel()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg wireMessage
		if err := wsjson.Read(s.ctx, conn, &msg); err != nil {
			return
		}

		if s.token != "" && msg.Token != s.token {
			out <- wireMessage{Type: msgError, Error: "permission-denied"}
			continue
		}
		if msg.User == "" {
			out <- wireMessage{Type: msgError, Error: "missing user id"}
			continue
		}

		switch msg.Type {
		case msgSubscribe:
			subscribedUser = msg.User
			s.addSubscriber(msg.User, conn, out)
			out <- s.snapshotFrame(msg.User)
			s.logger.Printf("Subscribed: %s", msg.User)

		case msgPut:
			s.putDocument(msg.User, msg.Payload)
			out <- wireMessage{Type: msgAck, User: msg.User}

		default:
			out <- wireMessage{Type: msgError, Error: fmt.Sprintf("unknown message type %q", msg.Type)}
		}
	}
}

// putDocument stores the payload with a resolved server timestamp and
// broadcasts the committed state to every subscriber of the user.
func (s *DevServer) putDocument(userID string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := resolveServerTimestamps(copyPayload(payload), time.Now()).(map[string]any)
	s.docs[userID] = stored

	frame := wireMessage{Type: msgSnapshot, User: userID, Exists: true, Payload: copyPayload(stored)}
	for _, out := range s.subs[userID] {
		select {
		case out <- frame:
		default:
			// Subscriber not draining; it will resync on reconnect.
		}
	}
}

// snapshotFrame builds the initial snapshot for a new subscriber.
func (s *DevServer) snapshotFrame(userID string) wireMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return wireMessage{Type: msgSnapshot, User: userID, Exists: false}
	}
	return wireMessage{Type: msgSnapshot, User: userID, Exists: true, Payload: copyPayload(doc)}
}

func (s *DevServer) addSubscriber(userID string, conn *websocket.Conn, out chan wireMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[*websocket.Conn]chan wireMessage)
	}
	s.subs[userID][conn] = out
}

func (s *DevServer) dropSubscriber(userID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[userID], conn)
}
