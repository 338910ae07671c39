// Package fswatch observes the workflows folder non-recursively for *.xml
// definition files and emits Created/Changed/Deleted events (spec.md §4.4,
// component D). Grounded on the teacher's cli/cmd/dev/watcher.go, which
// wraps fsnotify the same way for its own dev-server reload loop.
package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"

	"github.com/flowforge/engine/pkg/logger"
)

// ListDefinitions returns every *.xml path directly inside dir (non-
// recursive, matching the watcher's own scope), for the façade's boot-time
// sweep of definitions that already existed before the watcher started.
func ListDefinitions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fswatch: list %s: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isXML(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// EventKind is one of the three kinds named in spec.md §4.4.
type EventKind int

const (
	Created EventKind = iota
	Changed
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "Created"
	case Changed:
		return "Changed"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// Event is one filtered, debounced notification about a workflow
// definition file.
type Event struct {
	Kind EventKind
	Path string
}

// debounceWindow is the open design note in spec.md §9 resolved: a short
// per-path debounce window absorbs editors that save in two syscalls
// (truncate then write) without merging bursts from unrelated files.
const debounceWindow = 150 * time.Millisecond

// Watcher watches one directory non-recursively and emits Events on C.
type Watcher struct {
	dir string
	fsw *fsnotify.Watcher
	C   chan Event

	mu         sync.Mutex
	debouncers map[string]func(func())
	cancels    map[string]func()
}

// New creates a Watcher rooted at dir. The caller must call Start to begin
// emitting events and Close to release the underlying fsnotify handle.
func New(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fswatch: create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("fswatch: watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:        dir,
		fsw:        fsw,
		C:          make(chan Event, 32),
		debouncers: make(map[string]func(func())),
		cancels:    make(map[string]func()),
	}, nil
}

// Start runs the event loop on the caller's goroutine until ctx is canceled
// or the underlying watcher closes.
func (w *Watcher) Start(ctx context.Context) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error("directory watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher and any pending debounce
// timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, cancel := range w.cancels {
		cancel()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !isXML(ev.Name) {
		return
	}
	var kind EventKind
	switch {
	case ev.Has(fsnotify.Create):
		kind = Created
	case ev.Has(fsnotify.Write):
		kind = Changed
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = Deleted
	default:
		return
	}
	w.debounce(ev.Name, func() {
		select {
		case w.C <- Event{Kind: kind, Path: ev.Name}:
		case <-ctx.Done():
		}
	})
}

// debounce collapses bursts of events for the same path within
// debounceWindow, lazily creating one debouncer per path. Only the last
// event of a burst is emitted, with that event's kind: a file created and
// then written within the window is reported as Changed, not Created.
func (w *Watcher) debounce(path string, f func()) {
	w.mu.Lock()
	emit, ok := w.debouncers[path]
	if !ok {
		var cancel func()
		emit, cancel = debounce.New(debounceWindow)
		w.debouncers[path] = emit
		w.cancels[path] = cancel
	}
	w.mu.Unlock()
	emit(f)
}
