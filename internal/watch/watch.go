// Package watch reloads the deck when its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/deck"
)

// DefaultDebounce batches the burst of events an editor produces on save.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc is called once per settled change of the watched file.
type ChangeFunc func(ctx context.Context, path string) error

// Watcher watches one file. The parent directory is watched so that
// editors which save by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New returns a Watcher calling onChange when path changes.
func New(path string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run blocks until ctx is done. Callback errors are logged and do not stop
// the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching deck", zap.String("path", w.path))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("deck event", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			if err := w.onChange(ctx, w.path); err != nil {
				w.logger.Warn("reload failed", zap.String("path", w.path), zap.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

// Reloader accepts a freshly loaded deck.
type Reloader interface {
	Reload(d *deck.Deck) error
}

// DeckReloader returns a ChangeFunc that loads the deck at the changed path
// and hands it to r. A deck that fails to load leaves r untouched.
func DeckReloader(r Reloader, logger *zap.Logger) ChangeFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, path string) error {
		d, err := deck.Load(path)
		if err != nil {
			return err
		}
		for _, w := range d.Lint() {
			logger.Warn("deck lint", zap.String("warning", w.String()))
		}
		return r.Reload(d)
	}
}
