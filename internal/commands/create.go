package commands

import (
	"sync"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/models"
)

// CreateFlow asks for a name and emits a create command for the target directory of the
// entry it was armed with.
type CreateFlow struct {
	bus   *bus.Bus
	topic bus.Topic[models.Create]

	mu    sync.Mutex
	state State
	entry models.Entry
	input string
}

// NewFileFlow creates a flow that emits DO_NEWFILE_CREATE.
func NewFileFlow(b *bus.Bus) *CreateFlow {
	return &CreateFlow{bus: b, topic: bus.DoNewFileCreate}
}

// NewFolderFlow creates a flow that emits DO_NEWFOLDER_CREATE.
func NewFolderFlow(b *bus.Bus) *CreateFlow {
	return &CreateFlow{bus: b, topic: bus.DoNewFolderCreate}
}

// Arm opens the flow with an empty name.
func (f *CreateFlow) Arm(e models.Entry) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Editing
	f.entry = e
	f.input = ""
	return f.state
}

// SetInput replaces the proposed name.
func (f *CreateFlow) SetInput(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = s
}

// Input returns the proposed name.
func (f *CreateFlow) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// CanSubmit reports whether the flow is editing a valid name.
func (f *CreateFlow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == Editing && ValidName(f.input)
}

// Submit emits the create command and closes the flow.
func (f *CreateFlow) Submit() error {
	f.mu.Lock()
	if f.state != Editing {
		f.mu.Unlock()
		return ErrNotOpen
	}
	if !ValidName(f.input) {
		f.mu.Unlock()
		return ErrInvalidName
	}
	cmd := models.Create{Name: lastSegment(f.input), Entry: f.entry}
	f.state, f.entry, f.input = Closed, models.Entry{}, ""
	f.mu.Unlock()

	bus.Publish(f.bus, f.topic, cmd)
	return nil
}

// Cancel closes the flow without emitting anything.
func (f *CreateFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.entry, f.input = Closed, models.Entry{}, ""
}

// State returns the current state.
func (f *CreateFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Target returns the entry the flow was armed with.
func (f *CreateFlow) Target() models.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry
}
