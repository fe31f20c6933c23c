package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"toolbroker/internal/domain"
)

// reloadDelay coalesces rapid successive writes into a single reload.
var reloadDelay = 100 * time.Millisecond

// newFSWatcher creates an fsnotify watcher; tests may replace it to inject errors.
var newFSWatcher = fsnotify.NewWatcher

// Watcher reloads a config file when it changes on disk and hands each valid
// result to a callback. Files that fail to load or validate are logged and
// skipped, so the last good config stays in effect.
type Watcher struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for the config file at path. A nil logger uses
// slog.Default(). Call Start to begin watching and Stop to release resources.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	return &Watcher{path: path, logger: logger}
}

func (w *Watcher) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

// Start begins watching. onChange runs on a separate goroutine after every
// change that yields a valid config.
func (w *Watcher) Start(onChange func(*domain.Config)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if onChange == nil {
		return errors.New("config watcher: callback must not be nil")
	}
	if w.running {
		return errors.New("config watcher: already started")
	}

	// Watch the parent directory so editors that replace the file by rename
	// are still seen.
	watcher, err := newFSWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.running = true
	go w.eventLoop(w.watcher, w.done, onChange)
	return nil
}

// Stop ceases watching. Safe to call even if not started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	w.running = false
	return err
}

func (w *Watcher) eventLoop(watcher *fsnotify.Watcher, done chan struct{}, onChange func(*domain.Config)) {
	target := filepath.Base(w.path)
	var timer *time.Timer

	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case <-done:
					return
				default:
				}
				w.reload(onChange)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log().Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(onChange func(*domain.Config)) {
	cfg, err := Load(w.path)
	if err == nil {
		err = Validate(cfg)
	}
	if err != nil {
		w.log().Warn("config reload skipped", "path", w.path, "error", err)
		return
	}
	w.log().Info("config reloaded", "path", w.path)
	onChange(cfg)
}
