// Package watch notices edits made to the JSON ledger by other programs and
// tells the ledger service, which announces them to mirrors. It never reads
// records or caches data.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"tracker/internal/log"
)

// DefaultDebounce absorbs the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// Notifier is told when the ledger file changed.
type Notifier interface {
	NotifyChanged(ctx context.Context)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnore skips changes whose file content matches. Stores pass their own
// last write so the process does not react to itself.
func WithIgnore(ignore func(data []byte) bool) Option {
	return func(w *Watcher) { w.ignore = ignore }
}

func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

type Watcher struct {
	path     string
	notifier Notifier
	debounce time.Duration
	ignore   func([]byte) bool
	logger   *log.Logger
	fsw      *fsnotify.Watcher
}

// New starts watching the directory holding path. Watching the directory
// rather than the file survives atomic saves that replace the inode.
func New(path string, notifier Notifier, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		path:     filepath.Clean(path),
		notifier: notifier,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Discard()
	}
	w.logger = w.logger.WithComponent(log.ComponentWatch)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw
	return w, nil
}

// Run reports changes until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("Watching ledger file", "path", w.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			// Remove and Rename are how atomic saves look.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.changed(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", log.FieldError, err)
		}
	}
}

func (w *Watcher) changed(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Deleted or mid-replace; report it so mirrors resync.
	case err != nil:
		w.logger.Warn("Failed to read changed ledger", log.FieldError, err)
	case w.ignore != nil && w.ignore(data):
		w.logger.Debug("Ignoring own ledger write")
		return
	}

	w.logger.Info("Ledger file changed externally", "path", w.path)
	w.notifier.NotifyChanged(ctx)
}
