package auth

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher is a Watcher over the persisted session file. It emits the
// current session at start and a transition whenever the file is
// created, rewritten, or removed.
type FileWatcher struct {
	dir     string
	signal  *Signal
	watcher *fsnotify.Watcher
	logger  *log.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	last    string // last emitted user id, "" when signed out
	started bool   // initial emission done
}

// WatchDir starts watching the session file under dir.
// If logger is nil, a default logger writing to stderr is used.
func WatchDir(dir string, logger *log.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[auth] ", log.LstdFlags)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}

	fw := &FileWatcher{
		dir:     dir,
		signal:  NewSignal(),
		watcher: watcher,
		logger:  logger,
		done:    make(chan struct{}),
	}

	// Edge zero: whatever session exists right now.
	fw.emitCurrent()

	fw.wg.Add(1)
	go fw.loop()
	return fw, nil
}

// Sessions implements Watcher.
func (fw *FileWatcher) Sessions() <-chan *Session { return fw.signal.Sessions() }

// Close implements Watcher. Blocks until the event loop has exited.
func (fw *FileWatcher) Close() error {
	fw.once.Do(func() {
		close(fw.done)
		fw.watcher.Close()
		fw.wg.Wait()
		fw.signal.Close()
	})
	return nil
}

func (fw *FileWatcher) loop() {
	defer fw.wg.Done()

	sessionPath := filepath.Join(fw.dir, SessionFileName)
	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != sessionPath {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			fw.emitCurrent()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Printf("Watcher error: %v", err)
		}
	}
}

// emitCurrent reads the session file and emits a transition when the
// signed-in identity actually changed. Write events for the same user
// (token refresh) are not edges.
func (fw *FileWatcher) emitCurrent() {
	sess, err := Load(fw.dir)
	if err != nil {
		fw.logger.Printf("Failed to load session: %v", err)
		return
	}

	id := ""
	if sess != nil {
		id = sess.UserID
	}

	fw.mu.Lock()
	changed := !fw.started || id != fw.last
	fw.last = id
	fw.started = true
	fw.mu.Unlock()

	if changed {
		fw.signal.Set(sess)
	}
}
