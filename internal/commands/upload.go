package commands

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/models"
)

// UploadFlow collects files for upload into the target directory of an entry, enforces
// the per-file size limit, and follows progress until the batch completes.
type UploadFlow struct {
	bus     *bus.Bus
	maxSize int64 // 0 disables the limit

	mu       sync.Mutex
	state    State
	entry    models.Entry
	files    []models.UploadFile
	progress map[string]models.UploadProgress
	order    []string
	unsubs   []func()
}

// NewUploadFlow creates a closed upload flow. maxSize of 0 disables the size limit.
func NewUploadFlow(b *bus.Bus, maxSize int64) *UploadFlow {
	f := &UploadFlow{bus: b, maxSize: maxSize, progress: map[string]models.UploadProgress{}}
	f.unsubs = append(f.unsubs,
		bus.Subscribe(b, bus.OnFileUploadProgress, f.onProgress),
		bus.Subscribe(b, bus.OnFileUploadComplete, func(models.Entry) { f.onComplete() }),
		bus.Subscribe(b, bus.OnOperationFailed, func(e models.OperationFailed) {
			if e.Op == "upload" {
				f.onComplete()
			}
		}),
	)
	return f
}

// Arm opens the flow with no files selected.
func (f *UploadFlow) Arm(e models.Entry) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Editing
	f.entry = e
	f.files = nil
	f.progress = map[string]models.UploadProgress{}
	f.order = nil
	return f.state
}

// SetFiles replaces the selection.
func (f *UploadFlow) SetFiles(files []models.UploadFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append([]models.UploadFile(nil), files...)
}

// Files returns the current selection.
func (f *UploadFlow) Files() []models.UploadFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UploadFile(nil), f.files...)
}

// MaxSize returns the per-file size limit, 0 when disabled.
func (f *UploadFlow) MaxSize() int64 {
	return f.maxSize
}

// TooLarge reports whether a file of size bytes exceeds the limit.
func (f *UploadFlow) TooLarge(size int64) bool {
	return f.maxSize > 0 && size > f.maxSize
}

// Oversized returns the selected files that exceed the limit.
func (f *UploadFlow) Oversized() []models.UploadFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UploadFile
	for _, file := range f.files {
		if f.TooLarge(file.Size) {
			out = append(out, file)
		}
	}
	return out
}

// Describe renders a file for the picker, flagging files over the limit.
func (f *UploadFlow) Describe(file models.UploadFile) string {
	s := fmt.Sprintf("%s %s", file.Name, humanize.Bytes(uint64(file.Size)))
	if f.TooLarge(file.Size) {
		s += fmt.Sprintf("  FILE EXCEEDS MAX SIZE OF: %s", humanize.Bytes(uint64(f.maxSize)))
	}
	return s
}

// CanSubmit reports whether at least one file is selected and none is too large.
func (f *UploadFlow) CanSubmit() bool {
	return f.State() == Editing && len(f.Files()) > 0 && len(f.Oversized()) == 0
}

// Submit emits DO_UPLOAD_FILES and waits for completion in the Submitted state.
func (f *UploadFlow) Submit() error {
	f.mu.Lock()
	if f.state != Editing {
		f.mu.Unlock()
		return ErrNotOpen
	}
	if len(f.files) == 0 {
		f.mu.Unlock()
		return ErrNoFiles
	}
	for _, file := range f.files {
		if f.TooLarge(file.Size) {
			f.mu.Unlock()
			return fmt.Errorf("%s: %w", file.Name, ErrFileTooLarge)
		}
	}
	cmd := models.Upload{Entry: f.entry, Files: append([]models.UploadFile(nil), f.files...)}
	f.state = Submitted
	f.mu.Unlock()

	bus.Publish(f.bus, bus.DoUploadFiles, cmd)
	return nil
}

// Cancel closes the flow. An upload already submitted keeps running.
func (f *UploadFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Closed
	f.entry = models.Entry{}
	f.files = nil
}

// State returns the current state.
func (f *UploadFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Target returns the entry the flow was armed with.
func (f *UploadFlow) Target() models.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry
}

// Progress returns the latest progress of each file, in the order uploads started.
func (f *UploadFlow) Progress() []models.UploadProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.UploadProgress, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.progress[name])
	}
	return out
}

// Close stops following the bus.
func (f *UploadFlow) Close() {
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil
}

func (f *UploadFlow) onProgress(p models.UploadProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Submitted {
		return
	}
	if _, ok := f.progress[p.Filename]; !ok {
		f.order = append(f.order, p.Filename)
	}
	f.progress[p.Filename] = p
}

func (f *UploadFlow) onComplete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitted {
		f.state = Closed
		f.files = nil
	}
}
