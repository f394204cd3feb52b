package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
)

const defaultDebounce = 500 * time.Millisecond

// TriggerFunc regenerates the gallery. It is never called concurrently.
type TriggerFunc func(ctx context.Context) error

// Watcher regenerates a gallery when the photos in a source folder change.
type Watcher struct {
	dir      string
	debounce time.Duration
	ignore   []string
	trigger  TriggerFunc
	fs       *fsnotify.Watcher
	logger   *zap.Logger
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the folder must stay quiet before a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore skips events for paths inside any of dirs, typically the
// gallery output when it lives under the source folder.
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// New creates a watcher for dir. Call Run to start it.
func New(dir string, trigger TriggerFunc, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		dir:      abs,
		debounce: defaultDebounce,
		trigger:  trigger,
		fs:       fsWatcher,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is done. Bursts of events are collapsed into one
// rebuild once the folder has been quiet for the debounce period.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	if err := w.fs.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", w.dir, err)
	}
	w.logger.Info("Watching folder", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	var quiet <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Source changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			quiet = time.After(w.debounce)

		case <-quiet:
			quiet = nil
			w.fire(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	w.logger.Info("Rebuilding gallery", zap.String("dir", w.dir))
	if err := w.trigger(ctx); err != nil {
		w.logger.Error("Rebuild failed", zap.Error(err))
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if name == "" || name[0] == '.' {
		return false
	}
	for _, dir := range w.ignore {
		if event.Name == dir || strings.HasPrefix(event.Name, dir+string(filepath.Separator)) {
			return false
		}
	}
	if entity.IsSupportedFormat(name) {
		return true
	}
	// Metadata sidecars change titles and captions.
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
