// Package watcher re-runs a callback when files under a directory tree change.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kipp7/landslide-monitoring-v2/internal/logging"
)

// DefaultDebounce collapses editor save bursts into one run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree for changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	callback func(context.Context)
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending *time.Timer
	running sync.WaitGroup
}

// New creates a watcher over every directory below root. Directories created
// later are added as they appear.
func New(root string, callback func(context.Context)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		root:     root,
		callback: callback,
		debounce: DefaultDebounce,
		logger:   logging.With(zap.String("component", "watcher"), zap.String("root", root)),
	}
	if err := w.addTree(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce sets the debounce duration for file changes
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run delivers debounced change notifications until ctx is cancelled. The
// callback never runs concurrently with itself.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	trigger := make(chan struct{}, 1)
	w.running.Add(1)
	go func() {
		defer w.running.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				w.callback(ctx)
			}
		}
	}()
	defer func() {
		cancel()
		w.running.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.watchCreated(event.Name)
			}
			w.logger.Debug("docs change detected",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			w.schedule(trigger)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("docs watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule(trigger chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		select {
		case trigger <- struct{}{}:
		default: // a run is already queued
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
}

// watchCreated adds a newly created directory before its files change. The
// path may already be gone again, or be a plain file.
func (w *Watcher) watchCreated(path string) {
	if err := w.addTree(path); err != nil {
		w.logger.Debug("failed to watch new path", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(p)
	})
}
