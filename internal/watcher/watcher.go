// Package watcher watches a directory tree for file changes and emits
// debounced batches of events, so the ingest pipeline isn't re-run once
// per write syscall during a large save (e.g. git checkout, editor
// autosave). Built directly on fsnotify's recursive-by-registration model:
// every directory discovered is added to the watch individually.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation classifies a file system change.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file was removed.
	OpDelete
)

// String returns a human-readable operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one (debounced) change to a path.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow coalesces events for the same path within this window.
	DebounceWindow time.Duration
}

// DefaultOptions matches fsnotify's typical editor-save burst duration.
func DefaultOptions() Options {
	return Options{DebounceWindow: 300 * time.Millisecond}
}

// Watcher recursively watches a directory and emits debounced FileEvents.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *debouncer
	events    chan FileEvent
	errors    chan error
}

// New builds a Watcher. Start begins watching.
func New(opts Options) (*Watcher, error) {
	if opts.DebounceWindow <= 0 {
		opts = DefaultOptions()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fs:        fs,
		debouncer: newDebouncer(opts.DebounceWindow),
		events:    make(chan FileEvent, 256),
		errors:    make(chan error, 16),
	}, nil
}

// Events returns the debounced event stream. Closed when Start returns.
func (w *Watcher) Events() <-chan FileEvent { return w.events }

// Errors returns non-fatal watch errors. Closed when Start returns.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Start watches root recursively until ctx is cancelled, registering every
// subdirectory found at startup and any created afterward.
func (w *Watcher) Start(ctx context.Context, root string) error {
	if err := w.addRecursive(root); err != nil {
		return err
	}

	go w.pump(ctx)

	for batch := range w.debouncer.Output() {
		for _, e := range batch {
			select {
			case w.events <- e:
			case <-ctx.Done():
			}
		}
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) pump(ctx context.Context) {
	defer close(w.events)
	defer close(w.errors)
	defer w.debouncer.Stop()
	defer func() { _ = w.fs.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fs.Add(ev.Name)
			return
		}
		w.debouncer.Add(FileEvent{Path: ev.Name, Operation: OpCreate, Timestamp: time.Now()})
	case ev.Op&fsnotify.Write != 0:
		w.debouncer.Add(FileEvent{Path: ev.Name, Operation: OpModify, Timestamp: time.Now()})
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.debouncer.Add(FileEvent{Path: ev.Name, Operation: OpDelete, Timestamp: time.Now()})
	}
}
