package file

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDuration coalesces editor write bursts into one notification
const debounceDuration = 500 * time.Millisecond

// ScreenWatcher watches a screen directory and reports changed screen
// versions. Used in development for hot reload of definitions while
// authoring.
type ScreenWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onChange []func(screen string, version int)
	mu       sync.RWMutex
	stopCh   chan struct{}
}

// NewScreenWatcher creates a watcher over a screen directory
func NewScreenWatcher(dir string, logger *zap.Logger) (*ScreenWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ScreenWatcher{
		dir:     dir,
		watcher: watcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// OnChange registers a callback invoked when a screen version file changes
func (w *ScreenWatcher) OnChange(fn func(screen string, version int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start begins watching in a background goroutine
func (w *ScreenWatcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher
func (w *ScreenWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *ScreenWatcher) watchLoop() {
	var debounceTimer *time.Timer
	pending := make(map[string]struct{})
	var pendingMu sync.Mutex

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if _, _, ok := splitScreenFile(filepath.Base(event.Name)); !ok {
				continue
			}

			pendingMu.Lock()
			pending[event.Name] = struct{}{}
			pendingMu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDuration, func() {
				pendingMu.Lock()
				changed := pending
				pending = make(map[string]struct{})
				pendingMu.Unlock()

				for path := range changed {
					w.notify(path)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("screen watcher error", zap.Error(err))
		}
	}
}

// notify resolves a changed file name to (screen, version) and fans out
func (w *ScreenWatcher) notify(path string) {
	screen, version, ok := splitScreenFile(filepath.Base(path))
	if !ok {
		return
	}

	w.logger.Info("screen definition changed",
		zap.String("screen", screen),
		zap.Int("version", version),
	)

	w.mu.RLock()
	callbacks := w.onChange
	w.mu.RUnlock()

	for _, fn := range callbacks {
		fn(screen, version)
	}
}
