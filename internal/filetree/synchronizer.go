// Package filetree keeps the client-side snapshot of the remote file tree.
//
// The snapshot only ever holds the children of open directories. Every directory load
// rebuilds it from the previous snapshot and the fresh listing (see reconcile), so loads
// that race each other leave a consistent result whichever finishes last.
package filetree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// Lister lists the immediate children of a directory.
type Lister interface {
	List(ctx context.Context, dir string) ([]remote.FileInfo, error)
}

// Runner starts fn, usually on another goroutine.
type Runner func(fn func())

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithRunner sets how bus-triggered directory loads are started. The default runs each
// load on its own goroutine.
func WithRunner(run Runner) Option {
	return func(s *Synchronizer) {
		s.run = run
	}
}

// Synchronizer owns the tree snapshot and keeps it in step with the remote store.
type Synchronizer struct {
	lister Lister
	bus    *bus.Bus
	run    Runner

	mu       sync.RWMutex
	snapshot Snapshot
	ctx      context.Context
	unsubs   []func()
}

// New creates a Synchronizer with an empty snapshot.
func New(lister Lister, b *bus.Bus, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		lister:   lister,
		bus:      b,
		run:      func(fn func()) { go fn() },
		snapshot: Snapshot{},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach subscribes to the bus. ctx bounds every load started from a notification.
func (s *Synchronizer) Attach(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.unsubs = append(s.unsubs,
		bus.Subscribe(s.bus, bus.OnDirectoryOpen, func(e models.Entry) {
			s.reloadAsync(e.FilePath)
		}),
		bus.Subscribe(s.bus, bus.OnDirectoryClose, func(e models.Entry) {
			s.CloseSubtree(e)
		}),
		bus.Subscribe(s.bus, bus.DoSelectFileOrDirectory, func(e models.Entry) {
			s.Select(e)
		}),
		bus.Subscribe(s.bus, bus.DoDeselectAll, func(struct{}) {
			s.DeselectAll()
		}),
		bus.Subscribe(s.bus, bus.OnFileCreated, func(dir string) {
			s.reloadAsync(dir)
		}),
		bus.Subscribe(s.bus, bus.OnFolderCreated, func(dir string) {
			s.reloadAsync(dir)
		}),
		bus.Subscribe(s.bus, bus.OnFileRenamed, func(r models.Renamed) {
			s.reloadAsync(r.Entry.ContainingDirectoryPath)
		}),
		bus.Subscribe(s.bus, bus.OnDirectoryRenamed, func(r models.Renamed) {
			s.invalidate(r.Entry.FilePath, false)
			s.reloadAsync(r.Entry.ContainingDirectoryPath)
		}),
		bus.Subscribe(s.bus, bus.OnFileOrDirectoryDeleted, func(e models.Entry) {
			s.invalidate(e.FilePath, true)
			s.reloadAsync(e.ContainingDirectoryPath)
		}),
		bus.Subscribe(s.bus, bus.OnFileUploadComplete, func(e models.Entry) {
			s.reloadAsync(e.TargetDirectory())
		}),
	)
}

// Detach unsubscribes from the bus and discards the snapshot.
func (s *Synchronizer) Detach() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil

	s.mu.Lock()
	s.snapshot = Snapshot{}
	s.mu.Unlock()
	metrics.SetSnapshotEntries(0)
}

// LoadSubtree fetches the children of dir and reconciles them into the snapshot.
// On error the snapshot is left untouched.
func (s *Synchronizer) LoadSubtree(ctx context.Context, dir string) error {
	fetched, err := s.lister.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("load subtree %s: %w", dir, err)
	}

	s.mu.Lock()
	s.snapshot = reconcile(s.snapshot, dir, fetched)
	n := len(s.snapshot)
	s.mu.Unlock()

	metrics.RecordReconciliation()
	logging.Debug("subtree loaded",
		zap.String("dir", pathutil.Dir(dir)),
		zap.Int("children", len(fetched)),
		zap.Int("entries", n))
	s.changed(n)
	return nil
}

// reloadAsync runs LoadSubtree for dir through the runner and reports failures on the bus.
func (s *Synchronizer) reloadAsync(dir string) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	s.run(func() {
		err := s.LoadSubtree(ctx, dir)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			logging.Debug("directory load cancelled", zap.String("dir", dir))
		default:
			logging.Warn("directory load failed", zap.String("dir", dir), zap.Error(err))
			bus.Publish(s.bus, bus.OnOperationFailed, models.OperationFailed{
				Op:   "list",
				Path: pathutil.Dir(dir),
				Err:  err,
			})
		}
	})
}

// CloseSubtree marks the directory closed and drops everything below it. Entries of a
// sibling sharing a name prefix ("/foobar" next to "/foo") are kept.
func (s *Synchronizer) CloseSubtree(dir models.Entry) {
	id := pathutil.Dir(dir.FilePath)

	s.mu.Lock()
	next := withoutNested(s.snapshot, id)
	if e, ok := next[id]; ok {
		e.IsDirectoryOpen = false
		next[id] = e
	}
	s.snapshot = next
	n := len(next)
	s.mu.Unlock()

	s.changed(n)
}

// invalidate drops the entries nested under p, and p itself when self is set.
func (s *Synchronizer) invalidate(p string, self bool) {
	s.mu.Lock()
	next := withoutNested(s.snapshot, p)
	if self {
		delete(next, pathutil.Dir(p))
		delete(next, pathutil.Clean(p))
	}
	s.snapshot = next
	n := len(next)
	s.mu.Unlock()

	s.changed(n)
}

// Select marks entry as the only selected entry. Selecting a directory that is not open
// loads it.
func (s *Synchronizer) Select(entry models.Entry) {
	s.mu.Lock()
	next := make(Snapshot, len(s.snapshot))
	for id, e := range s.snapshot {
		e.IsSelected = id == entry.ID
		next[id] = e
	}
	s.snapshot = next
	current, ok := next[entry.ID]
	n := len(next)
	s.mu.Unlock()

	s.changed(n)
	if entry.IsDir() && (!ok || !current.IsDirectoryOpen) {
		s.reloadAsync(entry.FilePath)
	}
}

// DeselectAll clears the selection.
func (s *Synchronizer) DeselectAll() {
	s.mu.Lock()
	next := make(Snapshot, len(s.snapshot))
	for id, e := range s.snapshot {
		e.IsSelected = false
		next[id] = e
	}
	s.snapshot = next
	n := len(next)
	s.mu.Unlock()

	s.changed(n)
}

func (s *Synchronizer) changed(n int) {
	metrics.SetSnapshotEntries(n)
	bus.Publish(s.bus, bus.OnTreeChanged, n)
}

// Entries returns the snapshot with directories first, each group sorted by path.
func (s *Synchronizer) Entries() []models.Entry {
	s.mu.RLock()
	out := make([]models.Entry, 0, len(s.snapshot))
	for _, e := range s.snapshot {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Rows returns the snapshot in display order: each open directory is followed by its
// children, sibling groups ordered as in Entries.
func (s *Synchronizer) Rows() []models.Entry {
	children := make(map[string][]models.Entry)
	for _, e := range s.Entries() {
		children[e.ContainingDirectoryPath] = append(children[e.ContainingDirectoryPath], e)
	}

	var rows []models.Entry
	var walk func(dir string)
	walk = func(dir string) {
		for _, e := range children[dir] {
			rows = append(rows, e)
			if e.IsDir() && e.IsDirectoryOpen {
				walk(e.ID)
			}
		}
	}
	walk(pathutil.Root)
	return rows
}

// Lookup returns the entry with the given ID.
func (s *Synchronizer) Lookup(id string) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.snapshot[id]
	return e, ok
}

// Selected returns the selected entry, if any.
func (s *Synchronizer) Selected() (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.snapshot {
		if e.IsSelected {
			return e, true
		}
	}
	return models.Entry{}, false
}

// Len returns the number of entries in the snapshot.
func (s *Synchronizer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot)
}
