package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/classdeck/classdeck/internal/auth"
	"github.com/classdeck/classdeck/internal/cache"
	"github.com/classdeck/classdeck/internal/document"
	"github.com/classdeck/classdeck/internal/merge"
	"github.com/classdeck/classdeck/internal/remote"
	"github.com/classdeck/classdeck/internal/theme"
)

// Config holds controller configuration.
type Config struct {
	// CacheKey is the key of the single cache entry holding the document.
	CacheKey string

	// DebounceInterval is the quiet period after the last mutation before
	// persistence fires.
	DebounceInterval time.Duration

	// JournalPath, when non-empty, enables the JSONL sync journal.
	JournalPath string

	// OnStatus, when non-nil, is called on every status transition with
	// the status and a human-readable hint ("" when healthy). Called from
	// the controller goroutine; must not block.
	OnStatus func(Status, string)

	// Logger for controller activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheKey:         "appdocument",
		DebounceInterval: 2 * time.Second,
		Logger:           log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Controller owns the sync lifecycle: it holds the in-memory AppDocument
// and the last-saved snapshot, subscribes to the auth signal, opens and
// closes the realtime subscription, reconciles inbound snapshots, and
// drives debounced persistence for local mutations.
//
// All document state is owned by the Run goroutine. Mutations enter
// through Update; reads through Snapshot. There is no locking around the
// document because nothing else ever touches it, but ordering matters:
// the last-saved snapshot is updated strictly before an outbound write is
// issued and strictly before an inbound snapshot is installed as new
// state. Both orderings keep the very next echo check correct.
type Controller struct {
	cfg     Config
	cache   *cache.Cache
	store   remote.Store
	logger  *log.Logger
	journal *Journal

	sessCh    <-chan *auth.Session
	mutations chan func(*document.AppDocument)
	requests  chan chan *document.AppDocument

	// Run-goroutine state.
	doc       *document.AppDocument
	lastSaved []byte // canonical encoding of the last written/accepted doc, nil at session start
	session   *auth.Session
	sub       remote.Subscription
	timer     *time.Timer

	// Observable from any goroutine.
	obsMu  sync.Mutex
	status Status
	hint   string
	look   theme.Theme
}

// New creates a controller. The watcher supplies the edge-triggered auth
// signal; the controller never polls it.
func New(c *cache.Cache, store remote.Store, watcher auth.Watcher, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.CacheKey == "" {
		cfg.CacheKey = def.CacheKey
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = def.DebounceInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}

	ctrl := &Controller{
		cfg:       cfg,
		cache:     c,
		store:     store,
		logger:    cfg.Logger,
		sessCh:    watcher.Sessions(),
		mutations: make(chan func(*document.AppDocument), 64),
		requests:  make(chan chan *document.AppDocument),
		status:    StatusSaved,
	}
	if cfg.JournalPath != "" {
		ctrl.journal = NewJournal(cfg.JournalPath)
	}
	return ctrl
}

// Update applies a mutation to the in-memory document. The mutation runs
// on the controller goroutine; fn must not retain the document past its
// return. Each mutation restarts the debounce timer.
func (c *Controller) Update(fn func(*document.AppDocument)) {
	c.mutations <- fn
}

// Snapshot returns a deep copy of the current in-memory document. Only
// valid while Run is active.
func (c *Controller) Snapshot() *document.AppDocument {
	reply := make(chan *document.AppDocument, 1)
	c.requests <- reply
	return <-reply
}

// Status returns the current persistence status and hint.
func (c *Controller) Status() (Status, string) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	return c.status, c.hint
}

// Theme returns the presentation state derived from current settings.
func (c *Controller) Theme() theme.Theme {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	return c.look
}

// Run loads the cached document and processes events until ctx is
// cancelled. It is the only goroutine that touches the document.
func (c *Controller) Run(ctx context.Context) error {
	doc, ok, err := c.cache.LoadContext(ctx, c.cfg.CacheKey)
	if err != nil {
		c.logger.Printf("Failed to load cached document, starting empty: %v", err)
		doc = document.New()
	} else if !ok {
		doc = document.New()
	}
	c.doc = doc
	c.recomputeTheme()

	c.logger.Println("Sync controller started")

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case sess, ok := <-c.sessCh:
			if !ok {
				c.sessCh = nil
				continue
			}
			c.handleAuthChange(ctx, sess)

		case fn := <-c.mutations:
			fn(c.doc)
			c.setStatus(StatusPending, "")
			c.scheduleFlush()

		case reply := <-c.requests:
			reply <- c.doc.Clone()

		case <-c.flushC():
			c.timer = nil
			c.flush(ctx)

		case snap, ok := <-c.snapshotC():
			if !ok {
				c.sub = nil
				continue
			}
			c.handleSnapshot(ctx, snap)

		case err, ok := <-c.subErrorC():
			if !ok {
				c.sub = nil
				continue
			}
			if err != nil {
				c.setStatus(StatusError, hintFor(err))
				c.record(EventSyncError, err.Error())
				c.logger.Printf("Subscription error: %v", err)
			}
		}
	}
}

// handleAuthChange tears down any prior subscription before opening a new
// one, so a session switch never leaves two concurrent listeners.
func (c *Controller) handleAuthChange(ctx context.Context, sess *auth.Session) {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.session = sess
	c.lastSaved = nil

	if sess == nil {
		c.record(EventSignedOut, "")
		c.logger.Println("Signed out; cloud sync paused")
		return
	}

	c.record(EventSignedIn, sess.UserID)
	c.logger.Printf("Signed in as %s; subscribing", sess.UserID)

	sub, err := c.store.Subscribe(ctx, sess.UserID)
	if err != nil {
		// No retry timer: the subscription is re-opened on the next auth
		// transition.
		c.setStatus(StatusError, hintFor(err))
		c.record(EventSyncError, err.Error())
		c.logger.Printf("Failed to subscribe for %s: %v", sess.UserID, err)
		return
	}
	c.sub = sub
}

// handleSnapshot reconciles one inbound remote snapshot. Order of checks
// is load-bearing: wipe, then pending-write guard, then echo, then
// upstream protection, then merge.
func (c *Controller) handleSnapshot(ctx context.Context, snap remote.Snapshot) {
	// First use ever: the remote document does not exist. Create it from
	// the current in-memory state.
	if !snap.Exists {
		c.logger.Println("Remote document missing; creating from current state")
		c.pushCurrent(ctx, EventCreated)
		return
	}

	// A wipe is an unconditional override: adopt the (empty) remote
	// content, clear the local cache, and consult neither the merger nor
	// the last-saved snapshot.
	if snap.Wiped() {
		// A mutation inside the quiet period may have left the debounce
		// timer armed; cancel it so the flush cannot re-create the cache
		// entry the wipe is about to clear.
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		adopted := document.Sanitize(snap.Data)
		c.lastSaved = document.Encode(adopted)
		c.doc = adopted
		if err := c.cache.ClearContext(ctx, c.cfg.CacheKey); err != nil {
			c.logger.Printf("Failed to clear local cache after wipe: %v", err)
		}
		c.recomputeTheme()
		c.setStatus(StatusSaved, "")
		c.record(EventWiped, "")
		c.logger.Println("Remote wipe signal: adopted empty remote state, cleared local cache")
		return
	}

	// A locally-originated write the server has not acknowledged yet is
	// our own optimistic echo; drop it before even comparing.
	if snap.HasPendingWrites {
		return
	}

	remoteDoc := document.Sanitize(snap.Data)

	if isEcho(remoteDoc, c.lastSaved) {
		c.setStatus(StatusSaved, "")
		c.record(EventEcho, "")
		return
	}

	local := c.localDocument(ctx)

	// Upstream protection: a non-wiped empty remote while local data
	// exists means a device attached to a session that has never
	// uploaded. Accepting the empty remote would silently destroy the
	// local data; upload it instead.
	if !remoteDoc.HasPrimaryData() && local.HasPrimaryData() {
		c.doc = local
		c.record(EventProtected, "")
		c.logger.Println("Remote empty but local has data; uploading local state instead of accepting")
		c.pushCurrent(ctx, EventUploaded)
		return
	}

	merged := merge.Documents(remoteDoc, local)

	// Last-saved tracks what the remote currently holds, updated before
	// the merged state is installed. When the merge contributed nothing
	// the re-entered persistence path compares equal and skips the
	// upload; when it did contribute, the flush uploads the merged state
	// and the store's confirmation comes back as an echo.
	c.lastSaved = document.Encode(remoteDoc)
	c.doc = merged
	c.record(EventAccepted, "")
	c.setStatus(StatusPending, "")
	c.scheduleFlush()
}

// flush is the debounce fire: local write first, then derived state,
// then the remote write when it is actually needed.
func (c *Controller) flush(ctx context.Context) {
	c.setStatus(StatusSaving, "")

	if err := c.cache.StoreContext(ctx, c.cfg.CacheKey, c.doc); err != nil {
		c.setStatus(StatusError, "local save failed")
		c.record(EventSyncError, err.Error())
		c.logger.Printf("Failed to write local cache: %v", err)
		return
	}
	c.record(EventLocalSave, "")

	c.recomputeTheme()

	if c.session == nil {
		// Local-only persistence is complete.
		c.setStatus(StatusSaved, "")
		return
	}

	enc := document.Encode(c.doc)
	if c.lastSaved != nil && bytes.Equal(enc, c.lastSaved) {
		// Typically a merge that reproduced exactly what is already
		// stored remotely; skip the round-trip.
		c.setStatus(StatusSaved, "")
		return
	}

	if err := c.push(ctx, enc); err != nil {
		c.setStatus(StatusError, hintFor(err))
		c.record(EventSyncError, err.Error())
		c.logger.Printf("Remote write failed: %v", err)
		return
	}
	c.setStatus(StatusSaved, "")
	c.record(EventUploaded, "")
}

// pushCurrent uploads the current in-memory document immediately (first
// use and upstream protection), bypassing the debounce.
func (c *Controller) pushCurrent(ctx context.Context, event string) {
	c.setStatus(StatusSaving, "")
	if err := c.push(ctx, document.Encode(c.doc)); err != nil {
		c.setStatus(StatusError, hintFor(err))
		c.record(EventSyncError, err.Error())
		c.logger.Printf("Forced upload failed: %v", err)
		return
	}
	if err := c.cache.StoreContext(ctx, c.cfg.CacheKey, c.doc); err != nil {
		c.logger.Printf("Failed to write local cache after upload: %v", err)
	}
	c.setStatus(StatusSaved, "")
	c.record(event, "")
}

// push issues the remote write for the given canonical encoding. The
// last-saved snapshot is updated before the network call is initiated;
// on failure the previous snapshot is restored so the next attempt's
// comparison still sees the pre-failure truth.
func (c *Controller) push(ctx context.Context, enc []byte) error {
	payload := payloadFrom(enc)
	prev := c.lastSaved
	c.lastSaved = enc
	if err := c.store.Put(ctx, c.session.UserID, payload); err != nil {
		c.lastSaved = prev
		return err
	}
	return nil
}

// localDocument returns the local side for merge and protection checks:
// the cached copy when present, else the in-memory state.
func (c *Controller) localDocument(ctx context.Context) *document.AppDocument {
	cached, ok, err := c.cache.LoadContext(ctx, c.cfg.CacheKey)
	if err != nil {
		c.logger.Printf("Failed to read local cache for merge: %v", err)
		return c.doc.Clone()
	}
	if !ok {
		return c.doc.Clone()
	}
	return cached
}

// payloadFrom converts a canonical document encoding into the write
// payload: the document plus a server-timestamp token under updatedAt.
// The canonical encoding has already elided unset optional fields, which
// is what keeps values the remote store rejects out of the payload.
func payloadFrom(enc []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(enc, &payload); err != nil {
		// enc came from document.Encode; this cannot fail.
		panic("sync: payload decode: " + err.Error())
	}
	payload[document.EnvelopeUpdatedAt] = remote.ServerTimestamp()
	return payload
}

// scheduleFlush restarts the debounce timer.
func (c *Controller) scheduleFlush() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.NewTimer(c.cfg.DebounceInterval)
}

// flushC returns the pending debounce channel, or nil when idle.
func (c *Controller) flushC() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.C
}

func (c *Controller) snapshotC() <-chan remote.Snapshot {
	if c.sub == nil {
		return nil
	}
	return c.sub.Snapshots()
}

func (c *Controller) subErrorC() <-chan error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Errors()
}

// shutdown flushes pending changes and tears the subscription down. An
// in-flight write is never cancelled mid-way; shutdown waits for the
// final flush to complete or fail.
func (c *Controller) shutdown() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.flush(context.Background())
	}
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.logger.Println("Sync controller stopped")
}

func (c *Controller) setStatus(s Status, hint string) {
	c.obsMu.Lock()
	c.status = s
	c.hint = hint
	cb := c.cfg.OnStatus
	c.obsMu.Unlock()
	if cb != nil {
		cb(s, hint)
	}
}

func (c *Controller) recomputeTheme() {
	look := theme.Derive(c.doc.Settings)
	c.obsMu.Lock()
	c.look = look
	c.obsMu.Unlock()
}

func (c *Controller) record(event, detail string) {
	c.journal.Record(event, detail)
}
