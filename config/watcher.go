package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/theoremus-urban-solutions/odata-core/internal/logging"
)

// ReloadCallback is called with every successfully reloaded configuration.
type ReloadCallback func(*AppConfig)

// ErrorCallback is called when a reload fails. The last good configuration
// stays in effect.
type ErrorCallback func(error)

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path          string
	watcher       *fsnotify.Watcher
	callback      ReloadCallback
	errorCallback ErrorCallback
	logger        *logging.Logger
	debounceDelay time.Duration

	mu        sync.RWMutex
	last      *AppConfig
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the watcher waits for writes to settle.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the reload failure callback.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.errorCallback = callback
	}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, callback ReloadCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		watcher:       fsWatcher,
		callback:      callback,
		logger:        logging.Nop(),
		debounceDelay: 100 * time.Millisecond,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the file once and begins watching its directory. Editors that
// replace the file atomically are handled because the directory is watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.last = cfg
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Str("path", w.path).Msg("watching configuration file")
	go w.watch(ctx)
	return nil
}

// Stop ends the watch loop and releases the file watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh
	return w.watcher.Close()
}

// Last returns the last configuration that loaded successfully.
func (w *Watcher) Last() *AppConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// ForceReload reloads immediately, bypassing the debounce.
func (w *Watcher) ForceReload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	w.publish(cfg)
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var timer *time.Timer
	var debounceCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("config watcher stopped by context")
			return
		case <-w.stopCh:
			w.logger.Info().Msg("config watcher stopped")
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("config file changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounceDelay)
			debounceCh = timer.C
		case <-debounceCh:
			debounceCh = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.fail(err)
		return
	}
	w.logger.Info().Str("path", w.path).Msg("configuration reloaded")
	w.publish(cfg)
}

func (w *Watcher) publish(cfg *AppConfig) {
	w.mu.Lock()
	w.last = cfg
	w.mu.Unlock()
	if w.callback != nil {
		w.callback(cfg)
	}
}

func (w *Watcher) fail(err error) {
	w.logger.Error().Err(err).Str("path", w.path).Msg("configuration reload failed")
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}
