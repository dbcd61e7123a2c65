package loader

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// Editors often write a file several times per save.
const debounceInterval = 50 * time.Millisecond

// Watcher invalidates cached artifacts whose sources change on disk.
type Watcher struct {
	fw     *fsnotify.Watcher
	store  adapter.ArtifactStore
	fs     adapter.SourceFSAdapter
	logger *slog.Logger
}

// NewWatcher creates a watcher. store may be nil, in which case changes
// are only reported.
func NewWatcher(store adapter.ArtifactStore, fs adapter.SourceFSAdapter, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{fw: fw, store: store, fs: fs, logger: logger}, nil
}

// Add starts watching the given package directories.
func (w *Watcher) Add(dirs ...m.Path) error {
	for _, dir := range dirs {
		if err := w.fw.Add(string(dir)); err != nil {
			return err
		}
	}

	return nil
}

// Run blocks until ctx is done, calling onChange with the path of every
// changed Go source after its artifact was invalidated. A source is
// handled once it has been quiet for debounceInterval, so the handler
// sees the content of the last write.
func (w *Watcher) Run(ctx context.Context, onChange func(path m.Path)) error {
	pending := make(map[string]*time.Timer)
	settled := make(chan string)

	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}

		_ = w.fw.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}

			if !isSource(event.Name) || !relevant(event) {
				continue
			}

			if timer, exists := pending[event.Name]; exists {
				timer.Reset(debounceInterval)

				continue
			}

			name := event.Name
			pending[name] = time.AfterFunc(debounceInterval, func() {
				select {
				case settled <- name:
				case <-ctx.Done():
				}
			})

		case name := <-settled:
			delete(pending, name)
			w.changed(m.Path(name), onChange)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) changed(path m.Path, onChange func(path m.Path)) {
	if w.store != nil {
		if err := Invalidate(w.store, w.fs, path); err != nil {
			w.logger.Warn("artifact invalidation failed", slog.String("source", string(path)), slog.Any("error", err))
		}
	}

	if onChange != nil {
		onChange(path)
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func isSource(path string) bool {
	return filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go")
}
