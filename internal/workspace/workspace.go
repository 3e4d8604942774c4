// Package workspace wires the editor shell together: the event bus, the remote store, the
// tree synchronizer, the document set and the command flows.
//
// Commands published on the bus (DO_*) are carried out against the store off the
// dispatching goroutine; completions come back as ON_* notifications that the tree and the
// document set react to.
package workspace

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/commands"
	"github.com/crowdwave/reactoxide/internal/config"
	"github.com/crowdwave/reactoxide/internal/documents"
	"github.com/crowdwave/reactoxide/internal/filetree"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// taskGroup runs remote work on goroutines and lets callers wait for all of it.
type taskGroup struct {
	wg sync.WaitGroup
}

// Go runs fn on a new goroutine.
func (g *taskGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait blocks until every started task, including tasks started by other tasks, returns.
func (g *taskGroup) Wait() {
	g.wg.Wait()
}

// Options configures a Workspace.
type Options struct {
	// MaxFileSize limits files opened in the editor and picked for upload. 0 disables it.
	MaxFileSize int64
	// Registry holds editor buffers. Defaults to a MemoryRegistry.
	Registry documents.BufferRegistry
}

// DefaultOptions returns options with the default size limit.
func DefaultOptions() Options {
	return Options{MaxFileSize: config.DefaultMaxFileSize}
}

// Workspace is a mounted editor session over one remote store.
type Workspace struct {
	Bus       *bus.Bus
	Store     remote.Store
	Tree      *filetree.Synchronizer
	Documents *documents.Manager
	Registry  documents.BufferRegistry

	Rename    *commands.RenameFlow
	NewFile   *commands.CreateFlow
	NewFolder *commands.CreateFlow
	Upload    *commands.UploadFlow
	Delete    *commands.DeleteFlow

	ops    *Operations
	tasks  *taskGroup
	cancel context.CancelFunc
}

// New builds a workspace over store. Nothing is subscribed until Mount.
func New(store remote.Store, opts Options) *Workspace {
	reg := opts.Registry
	if reg == nil {
		reg = documents.NewMemoryRegistry()
	}
	b := bus.New()
	tasks := &taskGroup{}

	return &Workspace{
		Bus:       b,
		Store:     store,
		Tree:      filetree.New(store, b, filetree.WithRunner(tasks.Go)),
		Documents: documents.New(b, reg),
		Registry:  reg,
		Rename:    commands.NewRenameFlow(b),
		NewFile:   commands.NewFileFlow(b),
		NewFolder: commands.NewFolderFlow(b),
		Upload:    commands.NewUploadFlow(b, opts.MaxFileSize),
		Delete:    commands.NewDeleteFlow(b),
		ops:       newOperations(store, b, tasks, opts.MaxFileSize),
		tasks:     tasks,
	}
}

// Mount subscribes every component to the bus and loads the root directory.
func (w *Workspace) Mount(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.ops.Attach(ctx)
	w.Tree.Attach(ctx)
	w.Documents.Attach()

	if err := w.Tree.LoadSubtree(ctx, pathutil.Root); err != nil {
		w.Close()
		return fmt.Errorf("mount: %w", err)
	}
	logging.Info("workspace mounted", zap.Int("entries", w.Tree.Len()))
	return nil
}

// Wait blocks until all in-flight remote work has finished.
func (w *Workspace) Wait() {
	w.tasks.Wait()
}

// Close cancels in-flight work, waits for it, and unsubscribes everything. The tree
// snapshot is discarded.
func (w *Workspace) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.tasks.Wait()

	w.ops.Detach()
	w.Documents.Detach()
	w.Tree.Detach()
	w.Rename.Close()
	w.Upload.Close()
	logging.Debug("workspace closed")
}
