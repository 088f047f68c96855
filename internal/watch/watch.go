// Package watch turns file system notifications below a working copy into
// debounced batches of changed and deleted paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"skin-sync/internal/events"
	"skin-sync/internal/ignore"
	"skin-sync/internal/snapshot"

	"github.com/asaskevich/EventBus"
	"github.com/rjeczalik/notify"
)

// DefaultDebounce is how long the watcher waits for a quiet moment before
// handing a batch over.
const DefaultDebounce = 1500 * time.Millisecond

// EventType is the kind of change seen for a path.
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	default:
		return "rename"
	}
}

// Batch is the set of paths changed during one quiet period. Paths are
// slash-separated, relative to the root and sorted.
type Batch struct {
	Upserted []string
	Deleted  []string
}

func (b Batch) Empty() bool { return len(b.Upserted) == 0 && len(b.Deleted) == 0 }

// ErrRootRemoved is returned by Run when the watched directory goes away.
var ErrRootRemoved = errors.New("watched directory was removed")

// Handler receives batches one at a time.
type Handler func(ctx context.Context, b Batch) error

type Watcher struct {
	root     string
	matcher  *ignore.Matcher
	handler  Handler
	debounce time.Duration
	logger   *slog.Logger
	bus      EventBus.Bus

	mu      sync.Mutex
	pending map[string]EventType

	// runMu keeps handler calls from overlapping.
	runMu sync.Mutex
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithBus(bus EventBus.Bus) Option { return func(w *Watcher) { w.bus = bus } }

// New returns a watcher for root. matcher may be nil.
func New(root string, matcher *ignore.Matcher, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	w := &Watcher{
		root:     abs,
		matcher:  matcher,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		pending:  map[string]EventType{},
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Root is the resolved absolute directory being watched.
func (w *Watcher) Root() string { return w.root }

// Run watches the root recursively until ctx is done. Pending changes are
// flushed one last time before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	ch := make(chan notify.EventInfo, 100)
	if err := notify.Watch(filepath.Join(w.root, "..."), ch, notify.All); err != nil {
		return fmt.Errorf("failed to setup file watcher: %w", err)
	}
	defer notify.Stop(ch)

	w.publish(events.EventWatcherStarted)
	defer w.publish(events.EventWatcherStopped)
	w.logger.Info("file watcher started", "root", w.root)
	return w.loop(ctx, ch)
}

// loop keeps draining ch while a flush runs; notify drops events once ch is
// full.
func (w *Watcher) loop(ctx context.Context, ch <-chan notify.EventInfo) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	flushing := false
	done := make(chan error, 1)

	for {
		select {
		case <-ctx.Done():
			if flushing {
				<-done
			}
			w.flushOnStop()
			return nil
		case ei := <-ch:
			if ei.Path() == w.root {
				if _, err := os.Stat(w.root); err != nil {
					if flushing {
						<-done
					}
					w.logger.Error("working copy disappeared, stopping watcher", "root", w.root)
					if w.bus != nil {
						w.bus.Publish(events.EventShutdownRequested, "working copy removed: "+w.root)
					}
					return fmt.Errorf("%w: %s", ErrRootRemoved, w.root)
				}
				continue
			}
			if w.Observe(ei.Path(), mapNotifyEvent(ei.Event())) && !flushing {
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			flushing = true
			go func() { done <- w.Flush(ctx) }()
		case err := <-done:
			flushing = false
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("sync after change failed", "error", err)
			}
			if w.hasPending() {
				timer.Reset(w.debounce)
			}
		}
	}
}

func (w *Watcher) hasPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) > 0
}

func (w *Watcher) flushOnStop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		w.logger.Error("final sync failed", "error", err)
	}
}

// Observe records one event for an absolute path and reports whether it was
// queued. Reserved and ignored paths, and directories, are dropped; an
// edited .sync_ignore file reloads the rules.
func (w *Watcher) Observe(path string, ev EventType) bool {
	rel, ok := w.rel(path)
	if !ok {
		return false
	}
	if filepath.Base(rel) == ignore.FileName && w.matcher != nil {
		w.matcher.Reset()
	}
	if snapshot.IsReserved(rel) {
		return false
	}
	info, err := os.Lstat(path)
	exists := err == nil
	if exists && info.IsDir() {
		return false
	}
	if w.matcher != nil && w.matcher.Skip(rel) {
		return false
	}

	w.mu.Lock()
	w.pending[rel] = ev
	w.mu.Unlock()
	w.logger.Debug("file event", "path", rel, "event", ev)
	return true
}

// Flush hands the queued paths to the handler. Whether a path counts as
// changed or deleted is decided by what is on disk now, so a burst of
// events for one path collapses into a single entry.
func (w *Watcher) Flush(ctx context.Context) error {
	w.mu.Lock()
	pending := w.pending
	w.pending = map[string]EventType{}
	w.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	var b Batch
	for rel := range pending {
		info, err := os.Lstat(filepath.Join(w.root, filepath.FromSlash(rel)))
		switch {
		case err == nil && info.Mode().IsRegular():
			b.Upserted = append(b.Upserted, rel)
		case errors.Is(err, os.ErrNotExist):
			b.Deleted = append(b.Deleted, rel)
		}
	}
	sort.Strings(b.Upserted)
	sort.Strings(b.Deleted)
	if b.Empty() {
		return nil
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.handler(ctx, b)
}

func (w *Watcher) rel(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	r, err := filepath.Rel(w.root, path)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func (w *Watcher) publish(topic string) {
	if w.bus != nil {
		w.bus.Publish(topic, w.root)
	}
}

func mapNotifyEvent(event notify.Event) EventType {
	switch {
	case event&notify.Create != 0:
		return EventCreate
	case event&notify.Write != 0:
		return EventWrite
	case event&notify.Remove != 0:
		return EventRemove
	case event&notify.Rename != 0:
		return EventRename
	default:
		return EventWrite
	}
}
