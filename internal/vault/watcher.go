package vault

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"vaultlink/internal/logging"
)

// Watcher observes a vault root for Markdown file-system events and, after a
// debounce window, invokes onStale. It never touches the EntityIndex
// directly — the caller wires onStale to MarkStale plus a background
// rebuild, keeping this package a generic directory watcher.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	onStale     func()
	debounceDur time.Duration
	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher rooted at root. onStale is called at most
// once per debounce window regardless of how many files changed within it.
func NewWatcher(root string, onStale func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		root:        root,
		onStale:     onStale,
		debounceDur: 300 * time.Millisecond,
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the run loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryIndex).Error("watcher error: %v", err)
		case <-ticker.C:
			w.flushDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushDebounced() {
	w.mu.Lock()
	now := time.Now()
	fire := false
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			delete(w.debounceMap, path)
			fire = true
		}
	}
	w.mu.Unlock()

	if fire {
		logging.Get(logging.CategoryIndex).Info("vault change detected, marking index stale")
		w.onStale()
	}
}
