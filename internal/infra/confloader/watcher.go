package confloader

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/voralek/sessguard/internal/telemetry/logger"
)

// Watcher reports write events on a configuration file. The parent
// directory is watched rather than the file itself, so editor rename
// dances and atomic replaces are still seen.
type Watcher struct {
	fsw  *fsnotify.Watcher
	file string
	log  logger.Logger
}

// NewWatcher creates a watcher for the given configuration file.
func NewWatcher(path string, log logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if log == nil {
		log = logger.Default()
	}
	return &Watcher{fsw: fsw, file: filepath.Base(path), log: log}, nil
}

// Run blocks, invoking onChange after every write or create of the
// watched file, until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	defer func() { _ = w.fsw.Close() }()
	w.log.Info("configuration watcher started", "file", w.file)

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("configuration watcher stopped")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.log.Debug("configuration file changed", "op", event.Op.String())
				onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("configuration watcher error", "error", err)
		}
	}
}
