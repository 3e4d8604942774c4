// Package documents tracks the files open in the editor and which one is active.
package documents

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// ErrNoActive is returned by Save when no document is active.
var ErrNoActive = errors.New("no active document")

// Tab is one editor tab.
type Tab struct {
	Path   string
	Label  string
	Active bool
}

// Manager owns the open-document set. The registry is the source of truth for which
// buffers exist; Manager tracks the active one and publishes the open list.
type Manager struct {
	bus *bus.Bus
	reg BufferRegistry

	mu     sync.Mutex
	active string
	unsubs []func()

	// pubMu serializes open-list notifications.
	pubMu     sync.Mutex
	published []string
}

// New creates a Manager over reg.
func New(b *bus.Bus, reg BufferRegistry) *Manager {
	return &Manager{bus: b, reg: reg}
}

// Attach subscribes to the bus.
func (m *Manager) Attach() {
	m.unsubs = append(m.unsubs,
		bus.Subscribe(m.bus, bus.OnFileLoaded, func(f models.FileLoaded) {
			if err := m.HandleFileLoaded(f); err != nil {
				logging.Debug("file not opened", zap.String("path", f.Filename), zap.Error(err))
			}
		}),
		bus.Subscribe(m.bus, bus.DoSelectFileOrDirectory, m.Select),
		bus.Subscribe(m.bus, bus.OnFileOrDirectoryDeleted, m.HandleDeleted),
		bus.Subscribe(m.bus, bus.OnFileRenamed, m.HandleRenamed),
		bus.Subscribe(m.bus, bus.OnDirectoryRenamed, m.HandleRenamed),
	)
}

// Detach unsubscribes from the bus.
func (m *Manager) Detach() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// HandleFileLoaded opens loaded content in a new buffer and activates it. A path that is
// already open is only activated. Binary content is rejected with a notice.
func (m *Manager) HandleFileLoaded(f models.FileLoaded) error {
	path := pathutil.Clean(f.Filename)

	m.mu.Lock()
	if m.reg.Has(path) {
		m.active = path
		m.mu.Unlock()
		return nil
	}

	text, err := Decode(f.Content)
	if err != nil {
		m.mu.Unlock()
		msg := fmt.Sprintf("%s: %v", path, err)
		if errors.Is(err, ErrBinary) {
			msg = fmt.Sprintf("%s (%s) is binary so cannot be edited", path, humanize.Bytes(uint64(len(f.Content))))
		}
		bus.Publish(m.bus, bus.OnNotice, models.Notice{Level: models.NoticeWarn, Message: msg})
		return fmt.Errorf("open %s: %w", path, err)
	}

	if err := m.reg.Create(path, text); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("open %s: %w", path, err)
	}
	m.active = path
	m.mu.Unlock()

	logging.Debug("document opened", zap.String("path", path), zap.Int("bytes", len(f.Content)))
	m.publishOpenFiles()
	return nil
}

// Select activates an already-open file, or asks for it to be loaded. A path is never
// opened twice. Directories are ignored.
func (m *Manager) Select(e models.Entry) {
	if e.IsDir() {
		return
	}
	if m.Activate(e.FilePath) {
		return
	}
	bus.Publish(m.bus, bus.DoLoadFile, e)
}

// Activate makes path the active document if it is open.
func (m *Manager) Activate(path string) bool {
	path = pathutil.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.reg.Has(path) {
		return false
	}
	m.active = path
	return true
}

// Active returns the active document path.
func (m *Manager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != ""
}

// Close disposes the buffer for path. Closing the active document leaves none active.
func (m *Manager) Close(path string) {
	path = pathutil.Clean(path)
	m.mu.Lock()
	m.reg.Dispose(path)
	if m.active == path {
		m.active = ""
	}
	m.mu.Unlock()

	m.publishOpenFiles()
}

// HandleDeleted closes the buffer of a deleted file, or every buffer below a deleted
// directory. When the active buffer goes, another open buffer becomes active.
func (m *Manager) HandleDeleted(e models.Entry) {
	m.mu.Lock()
	for _, p := range m.reg.Paths() {
		if p == e.FilePath || (e.IsDir() && pathutil.IsWithin(p, e.FilePath)) {
			m.reg.Dispose(p)
			if p == m.active {
				m.active = ""
			}
		}
	}
	if m.active == "" {
		if remaining := m.reg.Paths(); len(remaining) > 0 {
			m.active = remaining[len(remaining)-1]
		}
	}
	m.mu.Unlock()

	m.publishOpenFiles()
}

// HandleRenamed moves buffers whose backing file moved to the new path, keeping content.
func (m *Manager) HandleRenamed(r models.Renamed) {
	from := r.Entry.FilePath
	to := pathutil.Clean(r.NewPath)

	m.mu.Lock()
	for _, p := range m.reg.Paths() {
		var target string
		switch {
		case p == from:
			target = to
		case r.Entry.IsDir() && pathutil.IsWithin(p, from):
			target = pathutil.Join(to, strings.TrimPrefix(p, pathutil.Dir(from)))
		default:
			continue
		}
		text, _ := m.reg.Text(p)
		if err := m.reg.Create(target, text); err != nil {
			logging.Warn("could not move buffer", zap.String("from", p), zap.String("to", target), zap.Error(err))
			continue
		}
		m.reg.Dispose(p)
		if m.active == p {
			m.active = target
		}
	}
	m.mu.Unlock()

	m.publishOpenFiles()
}

// OpenFiles returns the open paths in order.
func (m *Manager) OpenFiles() []string {
	return m.reg.Paths()
}

// Tabs returns one tab per open buffer. A tab shows the file name, or the full path when
// another open buffer has the same file name.
func (m *Manager) Tabs() []Tab {
	paths := m.reg.Paths()
	active, _ := m.Active()

	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[pathutil.Base(p)]++
	}

	tabs := make([]Tab, 0, len(paths))
	for _, p := range paths {
		label := pathutil.Base(p)
		if counts[label] > 1 {
			label = p
		}
		tabs = append(tabs, Tab{Path: p, Label: label, Active: p == active})
	}
	return tabs
}

// Save asks for the active buffer to be written back.
func (m *Manager) Save() error {
	active, ok := m.Active()
	if !ok {
		return ErrNoActive
	}
	text, ok := m.reg.Text(active)
	if !ok {
		return ErrNoActive
	}
	bus.Publish(m.bus, bus.DoSaveFile, models.SaveFile{FilePath: active, Data: text})
	return nil
}

// publishOpenFiles emits ON_OPEN_FILES_CHANGED when the open list differs from the last
// one published.
func (m *Manager) publishOpenFiles() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	paths := m.reg.Paths()
	if slices.Equal(paths, m.published) {
		return
	}
	m.published = paths

	metrics.SetOpenDocuments(len(paths))
	bus.Publish(m.bus, bus.OnOpenFilesChanged, append([]string(nil), paths...))
}
