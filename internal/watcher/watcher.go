// Package watcher provides file system watching for the methodology
// document, invalidating the cached copy when the file changes on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher monitors a single file and calls onChange when it is written or
// recreated. It watches the parent directory since fsnotify cannot watch
// files that do not exist yet.
type Watcher struct {
	targetPath string
	parentPath string
	onChange   func()
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
	debounce   time.Duration
}

// New creates a Watcher for the given file. onChange fires after a write,
// create or rename touching the file, debounced so editor save sequences
// collapse into one call.
func New(targetPath string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		targetPath: filepath.Clean(targetPath),
		parentPath: filepath.Dir(targetPath),
		onChange:   onChange,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   100 * time.Millisecond,
	}, nil
}

// Start begins watching for change events.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to add initial watch")
		// The loop retries when the directory shows up.
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); os.IsNotExist(err) {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	fire := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(w.debounce, w.onChange)
	}

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.targetPath {
				continue
			}

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				log.Info().Str("path", w.targetPath).Str("op", event.Op.String()).
					Msg("Methodology document changed")
				fire()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				log.Warn().Str("path", w.targetPath).
					Msg("Methodology document removed; generation will fail until it returns")
				fire()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}
