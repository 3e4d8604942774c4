package commands

import (
	"slices"
	"strings"
	"sync"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// Messages shown when a rename is refused.
const (
	BlockedFileOpen      = "This file is open in a tab. You must close the tab before renaming."
	BlockedDirectoryOpen = "There are tabs open under this directory. You must close those tabs before renaming."
)

// RenameFlow renames a file or directory in place.
//
// It refuses to start while the target, or anything below a directory target, is open
// in the editor. The open list is the copy last received on ON_OPEN_FILES_CHANGED, so a
// file opened after that notification and before Arm is not seen.
type RenameFlow struct {
	bus *bus.Bus

	mu        sync.Mutex
	openFiles []string
	state     State
	entry     models.Entry
	input     string
	reason    string
	unsub     func()
}

// NewRenameFlow creates a closed rename flow that tracks the open-file list on b.
func NewRenameFlow(b *bus.Bus) *RenameFlow {
	f := &RenameFlow{bus: b}
	f.unsub = bus.Subscribe(b, bus.OnOpenFilesChanged, func(paths []string) {
		f.mu.Lock()
		f.openFiles = append([]string(nil), paths...)
		f.mu.Unlock()
	})
	return f
}

// Arm opens the flow for e, or blocks it when e has open documents.
func (f *RenameFlow) Arm(e models.Entry) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entry = e
	f.reason = ""
	if e.IsDir() {
		prefix := pathutil.Dir(e.FilePath)
		for _, p := range f.openFiles {
			if strings.HasPrefix(p, prefix) {
				f.state = Blocked
				f.reason = BlockedDirectoryOpen
				return f.state
			}
		}
	}
	if slices.Contains(f.openFiles, e.FilePath) {
		f.state = Blocked
		f.reason = BlockedFileOpen
		return f.state
	}

	f.state = Editing
	f.input = e.Name()
	return f.state
}

// SetInput replaces the proposed name.
func (f *RenameFlow) SetInput(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = s
}

// Input returns the proposed name.
func (f *RenameFlow) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// CanSubmit reports whether the flow is editing a valid name.
func (f *RenameFlow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == Editing && ValidName(f.input)
}

// Submit emits DO_RENAME_FILE_OR_DIRECTORY and closes the flow. An unchanged name
// closes the flow without emitting anything.
func (f *RenameFlow) Submit() error {
	f.mu.Lock()
	if f.state != Editing {
		f.mu.Unlock()
		return ErrNotOpen
	}
	if !ValidName(f.input) {
		f.mu.Unlock()
		return ErrInvalidName
	}
	name := lastSegment(f.input)
	entry := f.entry
	f.reset()
	f.mu.Unlock()

	if name == entry.Name() {
		return nil
	}
	bus.Publish(f.bus, bus.DoRenameFileOrDirectory, models.Rename{Entry: entry, DestinationName: name})
	return nil
}

// Cancel closes the flow without emitting anything. It also dismisses a blocked flow.
func (f *RenameFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

// State returns the current state.
func (f *RenameFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reason explains a Blocked state.
func (f *RenameFlow) Reason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

// Target returns the entry the flow was armed with.
func (f *RenameFlow) Target() models.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry
}

// Close stops tracking the open-file list.
func (f *RenameFlow) Close() {
	f.unsub()
}

func (f *RenameFlow) reset() {
	f.state = Closed
	f.entry = models.Entry{}
	f.input = ""
	f.reason = ""
}
