// Package tui renders the editor shell in the terminal: the file tree on the left, the
// tabbed editor on the right and a status pane for notices, dialogs and upload progress.
//
// The model never touches the remote store. Gestures are turned into bus commands or
// command-flow calls, and the view is rebuilt from the tree snapshot and the document
// set whenever the bus reports activity.
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/commands"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/internal/workspace"
)

const maxNotices = 5

type focus int

const (
	focusTree focus = iota
	focusEditor
)

type dialog int

const (
	dialogNone dialog = iota
	dialogRename
	dialogNewFile
	dialogNewFolder
	dialogUpload
	dialogDelete
)

func (d dialog) title() string {
	switch d {
	case dialogRename:
		return "Rename"
	case dialogNewFile:
		return "New file"
	case dialogNewFolder:
		return "New folder"
	case dialogUpload:
		return "Upload (local paths, space separated)"
	case dialogDelete:
		return "Delete"
	default:
		return ""
	}
}

// busMsg reports that something was published on the bus.
type busMsg struct{ topic string }

// noticeMsg carries a user-facing notice from the bus.
type noticeMsg models.Notice

// Model is the bubbletea model of the shell.
type Model struct {
	ws     *workspace.Workspace
	keys   KeyMap
	help   help.Model
	editor textarea.Model
	input  textinput.Model

	rows    []models.Entry
	cursor  int
	focus   focus
	dialog  dialog
	active  string
	notices []models.Notice

	width  int
	height int

	events     chan string
	noticeFeed <-chan models.Notice
	stop       []func()
}

// New creates the shell model over a mounted workspace.
func New(ws *workspace.Workspace) *Model {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Placeholder = "No file open"
	ta.CharLimit = 0
	ta.Blur()

	ti := textinput.New()
	ti.CharLimit = 255
	ti.Prompt = "> "

	m := &Model{
		ws:     ws,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		editor: ta,
		input:  ti,
		events: make(chan string, 128),
		width:  100,
		height: 30,
	}

	// Non-blocking: a pending wake-up already covers this one.
	m.stop = append(m.stop, ws.Bus.Observe(func(topic string) {
		select {
		case m.events <- topic:
		default:
		}
	}))
	feed, cancel := bus.Stream(ws.Bus, bus.OnNotice, 32)
	m.noticeFeed = feed
	m.stop = append(m.stop, cancel)

	m.refresh()
	m.resize()
	return m
}

// Close detaches the model from the bus.
func (m *Model) Close() {
	for _, stop := range m.stop {
		stop()
	}
	m.stop = nil
}

// Init starts listening to the bus.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForNotice(), textarea.Blink)
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		topic, ok := <-m.events
		if !ok {
			return nil
		}
		return busMsg{topic: topic}
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-m.noticeFeed
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
	case busMsg:
		cmd = m.waitForEvent()
	case noticeMsg:
		m.notify(models.Notice(msg))
		cmd = m.waitForNotice()
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || (m.focus == focusTree && m.dialog == dialogNone)) {
			m.flush()
			return m, tea.Quit
		}
		if m.dialog != dialogNone {
			cmd = m.updateDialog(msg)
		} else {
			cmd = m.updateKeys(msg)
		}
	}
	m.refresh()
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return nil
	case key.Matches(msg, m.keys.Save):
		m.flush()
		if err := m.ws.Documents.Save(); err != nil {
			m.notify(models.Notice{Level: models.NoticeInfo, Message: err.Error()})
		}
		return nil
	case key.Matches(msg, m.keys.CloseTab):
		if active, ok := m.ws.Documents.Active(); ok {
			m.flush()
			m.ws.Documents.Close(active)
		}
		return nil
	case key.Matches(msg, m.keys.NextTab):
		m.cycleTab(1)
		return nil
	case key.Matches(msg, m.keys.PrevTab):
		m.cycleTab(-1)
		return nil
	}

	if m.focus == focusEditor {
		if m.active == "" {
			return nil
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		m.flush()
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		m.open()
	case key.Matches(msg, m.keys.Rename):
		target := m.current()
		if m.ws.Rename.Arm(target) == commands.Blocked {
			m.notify(models.Notice{Level: models.NoticeWarn, Message: m.ws.Rename.Reason()})
			m.ws.Rename.Cancel()
			return nil
		}
		return m.openDialog(dialogRename, m.ws.Rename.Input())
	case key.Matches(msg, m.keys.NewFile):
		m.ws.NewFile.Arm(m.current())
		return m.openDialog(dialogNewFile, "")
	case key.Matches(msg, m.keys.NewFolder):
		m.ws.NewFolder.Arm(m.current())
		return m.openDialog(dialogNewFolder, "")
	case key.Matches(msg, m.keys.Upload):
		m.ws.Upload.Arm(m.current())
		return m.openDialog(dialogUpload, "")
	case key.Matches(msg, m.keys.Delete):
		if len(m.rows) > 0 && m.ws.Delete.Arm(m.current()) == commands.Armed {
			m.dialog = dialogDelete
		}
	}
	return nil
}

func (m *Model) updateDialog(msg tea.KeyMsg) tea.Cmd {
	if m.dialog == dialogDelete {
		if key.Matches(msg, m.keys.Confirm) {
			if err := m.ws.Delete.Confirm(); err != nil {
				logging.Debug("delete not confirmed", zap.Error(err))
			}
		} else {
			m.ws.Delete.Cancel()
		}
		m.dialog = dialogNone
		return nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.cancelDialog()
		return nil
	case tea.KeyEnter:
		m.submitDialog()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	switch m.dialog {
	case dialogRename:
		m.ws.Rename.SetInput(m.input.Value())
	case dialogNewFile:
		m.ws.NewFile.SetInput(m.input.Value())
	case dialogNewFolder:
		m.ws.NewFolder.SetInput(m.input.Value())
	case dialogUpload:
		m.ws.Upload.SetFiles(commands.LocalFiles(strings.Fields(m.input.Value())))
	}
	return cmd
}

func (m *Model) openDialog(d dialog, value string) tea.Cmd {
	m.dialog = d
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeDialog() {
	m.dialog = dialogNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) cancelDialog() {
	switch m.dialog {
	case dialogRename:
		m.ws.Rename.Cancel()
	case dialogNewFile:
		m.ws.NewFile.Cancel()
	case dialogNewFolder:
		m.ws.NewFolder.Cancel()
	case dialogUpload:
		m.ws.Upload.Cancel()
	}
	m.closeDialog()
}

func (m *Model) submitDialog() {
	var err error
	switch m.dialog {
	case dialogRename:
		err = m.ws.Rename.Submit()
	case dialogNewFile:
		err = m.ws.NewFile.Submit()
	case dialogNewFolder:
		err = m.ws.NewFolder.Submit()
	case dialogUpload:
		m.ws.Upload.SetFiles(commands.LocalFiles(strings.Fields(m.input.Value())))
		err = m.ws.Upload.Submit()
	}
	switch {
	case errors.Is(err, commands.ErrInvalidName), errors.Is(err, commands.ErrNoFiles), errors.Is(err, commands.ErrFileTooLarge):
		// Keep the dialog open so the input can be fixed.
		m.notify(models.Notice{Level: models.NoticeWarn, Message: err.Error()})
		return
	case err != nil:
		m.notify(models.Notice{Level: models.NoticeError, Message: err.Error()})
	}
	m.closeDialog()
}

// open selects the row under the cursor, opening a file or toggling a directory.
func (m *Model) open() {
	if len(m.rows) == 0 {
		return
	}
	e := m.rows[m.cursor]
	if !e.IsDir() {
		m.flush()
	}
	// Selecting a closed directory loads it.
	bus.Publish(m.ws.Bus, bus.DoSelectFileOrDirectory, e)
	if e.IsDir() && e.IsDirectoryOpen {
		bus.Publish(m.ws.Bus, bus.OnDirectoryClose, e)
	}
}

// current is the entry under the cursor, or the root when the tree is empty.
func (m *Model) current() models.Entry {
	if len(m.rows) == 0 {
		return models.RootEntry()
	}
	return m.rows[m.cursor]
}

func (m *Model) toggleFocus() {
	if m.focus == focusTree {
		m.focus = focusEditor
		m.editor.Focus()
		return
	}
	m.focus = focusTree
	m.editor.Blur()
}

func (m *Model) cycleTab(step int) {
	tabs := m.ws.Documents.Tabs()
	if len(tabs) == 0 {
		return
	}
	i := 0
	for j, t := range tabs {
		if t.Active {
			i = j
		}
	}
	m.flush()
	next := (i + step + len(tabs)) % len(tabs)
	m.ws.Documents.Activate(tabs[next].Path)
}

// flush copies the editor contents into the active buffer.
func (m *Model) flush() {
	if m.active == "" || !m.ws.Registry.Has(m.active) {
		return
	}
	if err := m.ws.Registry.SetText(m.active, m.editor.Value()); err != nil {
		logging.Warn("buffer update failed", zap.String("path", m.active), zap.Error(err))
	}
}

// refresh rebuilds the tree rows and loads the active buffer into the editor when it
// changed.
func (m *Model) refresh() {
	m.rows = m.ws.Tree.Rows()
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}

	active, _ := m.ws.Documents.Active()
	if active == m.active {
		return
	}
	m.active = active
	text, _ := m.ws.Registry.Text(active)
	m.editor.SetValue(text)
}

func (m *Model) notify(n models.Notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}
