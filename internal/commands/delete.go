package commands

import (
	"sync"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/models"
)

// DeleteFlow requires two steps before a delete is emitted: Arm, then Confirm.
type DeleteFlow struct {
	bus *bus.Bus

	mu    sync.Mutex
	state State
	entry models.Entry
}

// NewDeleteFlow creates a closed delete flow.
func NewDeleteFlow(b *bus.Bus) *DeleteFlow {
	return &DeleteFlow{bus: b}
}

// Arm asks for confirmation to delete e. Arming the same entry again disarms it.
func (f *DeleteFlow) Arm(e models.Entry) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Armed && f.entry.ID == e.ID {
		f.state, f.entry = Closed, models.Entry{}
		return f.state
	}
	f.state, f.entry = Armed, e
	return f.state
}

// Confirm emits DO_DELETE_FILE_OR_DIRECTORY for the armed entry.
func (f *DeleteFlow) Confirm() error {
	f.mu.Lock()
	if f.state != Armed {
		f.mu.Unlock()
		return ErrNotOpen
	}
	entry := f.entry
	f.state, f.entry = Closed, models.Entry{}
	f.mu.Unlock()

	bus.Publish(f.bus, bus.DoDeleteFileOrDirectory, entry)
	return nil
}

// Cancel disarms the flow.
func (f *DeleteFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.entry = Closed, models.Entry{}
}

// State returns the current state.
func (f *DeleteFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Target returns the armed entry.
func (f *DeleteFlow) Target() models.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry
}
