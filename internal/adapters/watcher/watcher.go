// Package watcher reports changes to resource source files.
package watcher

import (
	"context"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher watches the directories holding source globs and reports events
// for files that match one of them.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	logger    ports.Logger
	events    chan ports.WatchEvent
	globs     []string
	done      chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a Watcher. Watch errors are reported to logger.
func NewWatcher(logger ports.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatcherFailed.Error())
	}
	return &Watcher{
		fsWatcher: fsw,
		logger:    logger,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the directories of the given glob patterns until ctx is
// done or Stop is called.
func (w *Watcher) Start(ctx context.Context, globs []string) error {
	w.globs = slices.Clone(globs)
	for _, dir := range watchDirs(globs) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatcherFailed.Error()), "dir", dir)
		}
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and waits for event processing to end.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsWatcher.Close()
	})
	return err
}

// Events returns an iterator of events. It ends when the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// Done is closed once event processing has ended.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Follow feeds the events of w through a Debouncer into fn until the
// event stream ends. Paths still pending at that point are dropped.
func Follow(w ports.Watcher, window time.Duration, fn func(paths []string)) {
	d := NewDebouncer(window, fn)
	defer d.Stop()
	for event := range w.Events() {
		d.Add(event.Path)
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			watchEvent, ok := convertEvent(event)
			if !ok || !w.matches(event.Name) {
				continue
			}
			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				_ = w.Stop()
				return
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Error(zerr.Wrap(err, domain.ErrWatcherFailed.Error()))
			}
		}
	}
}

func (w *Watcher) matches(path string) bool {
	for _, glob := range w.globs {
		if ok, err := filepath.Match(glob, path); err == nil && ok {
			return true
		}
	}
	return false
}

// watchDirs returns the deepest directory of each glob without wildcards.
func watchDirs(globs []string) []string {
	dirs := make([]string, 0, len(globs))
	for _, glob := range globs {
		dir := filepath.Dir(glob)
		for strings.ContainsAny(dir, "*?[") {
			dir = filepath.Dir(dir)
		}
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	var op ports.WatchOp
	switch {
	case event.Has(fsnotify.Write):
		op = ports.OpWrite
	case event.Has(fsnotify.Create):
		op = ports.OpCreate
	case event.Has(fsnotify.Remove):
		op = ports.OpRemove
	case event.Has(fsnotify.Rename):
		op = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}
	return ports.WatchEvent{Path: event.Name, Operation: op}, true
}
