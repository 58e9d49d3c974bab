// Package localdoc ingests document state written by the UI process. The
// UI saves the full planner document as JSON to a well-known file; the
// daemon watches that file and feeds each complete rewrite into the sync
// controller as a mutation.
package localdoc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/classdeck/classdeck/internal/document"
)

// FileName is the document exchange file under the config directory.
const FileName = "uidoc.json"

// settleDelay coalesces the burst of write events editors and UIs emit
// for a single save.
const settleDelay = 250 * time.Millisecond

// Watcher tails the UI document file and invokes apply with each decoded
// document.
type Watcher struct {
	path    string
	apply   func(*document.AppDocument)
	watcher *fsnotify.Watcher
	logger  *log.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch starts watching the UI document file under dir. apply is called
// from the watcher goroutine with every complete, parseable rewrite.
// If logger is nil, a default logger writing to stderr is used.
func Watch(dir string, apply func(*document.AppDocument), logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[localdoc] ", log.LstdFlags)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:    filepath.Join(dir, FileName),
		apply:   apply,
		watcher: fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
		w.watcher.Close()
		w.wg.Wait()
	})
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var settle *time.Timer
	var settleC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if settle != nil {
				settle.Stop()
			}
			settle = time.NewTimer(settleDelay)
			settleC = settle.C

		case <-settleC:
			settle = nil
			settleC = nil
			w.ingest()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watcher error: %v", err)
		}
	}
}

// ingest reads and decodes the exchange file and hands the document to
// the controller. A torn or malformed file is skipped; the next save
// produces a new event.
func (w *Watcher) ingest() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Printf("Failed to read %s: %v", w.path, err)
		}
		return
	}

	doc, err := document.Decode(data)
	if err != nil {
		w.logger.Printf("Skipping malformed document file: %v", err)
		return
	}

	w.apply(doc)
}
