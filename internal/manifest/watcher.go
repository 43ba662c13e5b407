package manifest

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay coalesces the bursts of events editors and atomic renames
// produce for a single save.
const debounceDelay = 200 * time.Millisecond

// Watcher reapplies a manifest file whenever it changes on disk. A reload
// that fails to parse or validate is logged and skipped; the registry keeps
// its previous state.
type Watcher struct {
	path    string
	manager *Manager
	logger  *zap.Logger
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the manifest at path.
func NewWatcher(path string, manager *Manager, logger *zap.Logger) (*Watcher, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:    path,
		manager: manager,
		logger:  logger,
	}, nil
}

// Start applies the manifest once, then watches for changes. The parent
// directory is watched rather than the file itself so atomic
// write-and-rename saves keep triggering reloads.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	if err := w.manager.ApplyFile(w.path); err != nil {
		return fmt.Errorf("initial manifest load: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	w.logger.Info("manifest watcher started", zap.String("path", w.path))
	go w.loop()
	return nil
}

// Stop stops watching. Safe to call on a stopped watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
	w.logger.Info("manifest watcher stopped")
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				debounceC = debounce.C
			} else {
				debounce.Reset(debounceDelay)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			if err := w.manager.ApplyFile(w.path); err != nil {
				w.logger.Error("manifest reload rejected, keeping previous state",
					zap.String("path", w.path),
					zap.Error(err),
				)
				continue
			}
			w.logger.Info("manifest reloaded", zap.String("path", w.path))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("manifest watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}
