package documents

import (
	"fmt"
	"sync"
)

// BufferRegistry is the editor widget's set of live buffers. It decides which buffers
// exist; the Manager decides which one is active.
type BufferRegistry interface {
	// Create adds a buffer for path holding text.
	Create(path, text string) error
	// Dispose removes the buffer for path, if any.
	Dispose(path string)
	// Paths lists buffer paths in creation order.
	Paths() []string
	// Has reports whether a buffer exists for path.
	Has(path string) bool
	// Text returns the current content of the buffer for path.
	Text(path string) (string, bool)
	// SetText replaces the content of an existing buffer.
	SetText(path, text string) error
}

// MemoryRegistry is an in-process BufferRegistry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	order []string
	text  map[string]string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{text: make(map[string]string)}
}

func (r *MemoryRegistry) Create(path, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.text[path]; ok {
		return fmt.Errorf("buffer %s already exists", path)
	}
	r.order = append(r.order, path)
	r.text[path] = text
	return nil
}

func (r *MemoryRegistry) Dispose(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.text[path]; !ok {
		return
	}
	delete(r.text, path)
	for i, p := range r.order {
		if p == path {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *MemoryRegistry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *MemoryRegistry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.text[path]
	return ok
}

func (r *MemoryRegistry) Text(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.text[path]
	return t, ok
}

func (r *MemoryRegistry) SetText(path, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.text[path]; !ok {
		return fmt.Errorf("buffer %s does not exist", path)
	}
	r.text[path] = text
	return nil
}
