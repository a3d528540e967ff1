package file

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/logger"
)

// debounceWindow coalesces editor save bursts into one reload.
const debounceWindow = 250 * time.Millisecond

// Watcher hot-reloads the config file. On change it re-reads the
// store and hands the freshly assembled quality tunables to the
// callback, so threshold changes apply without a restart.
type Watcher struct {
	store   *ConfigStore
	apply   func(domain.QualityConfig) error
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	done    chan struct{}
}

// NewWatcher creates a watcher for the store's config file. apply is
// called with the new quality config after every successful reload.
func NewWatcher(store *ConfigStore, apply func(domain.QualityConfig) error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		store:   store,
		apply:   apply,
		watcher: fw,
		done:    make(chan struct{}),
	}

	// Fall back to the directory when the file does not exist yet.
	// Editors that replace files on save still trigger through the
	// directory watch.
	if err := fw.Add(store.Path()); err != nil {
		if err := fw.Add(filepath.Dir(store.Path())); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch config: %w", err)
		}
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

// scheduleReload debounces rapid write bursts into a single reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceWindow, w.reload)
}

func (w *Watcher) reload() {
	if err := w.store.Load(); err != nil {
		logger.Warn("Config reload failed: %v", err)
		return
	}

	cfg := w.store.QualityConfig()
	if err := w.apply(cfg); err != nil {
		// Invalid tunables keep the previous config in effect.
		logger.Warn("Rejected reloaded config: %v", err)
		return
	}
	logger.Info("Config reloaded from %s", w.store.Path())
}
