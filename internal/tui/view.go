package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/crowdwave/reactoxide/internal/models"
)

const (
	treeWidth    = 32
	statusHeight = 9
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("62"))
	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	activeTab     = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = map[models.NoticeLevel]lipgloss.Style{
		models.NoticeInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		models.NoticeWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.NoticeError: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)

// resize fits the editor to the window.
func (m *Model) resize() {
	editorWidth := max(m.width-treeWidth-4, 20)
	editorHeight := max(m.height-statusHeight-6, 3)
	m.editor.SetWidth(editorWidth)
	m.editor.SetHeight(editorHeight)
	m.input.Width = max(m.width-8, 10)
	m.help.Width = m.width
}

// View renders the three panes and the help footer.
func (m *Model) View() string {
	bodyHeight := max(m.height-statusHeight-4, 3)

	treeStyle, editorStyle := paneStyle, paneStyle
	if m.focus == focusTree {
		treeStyle = focusedPaneStyle
	} else {
		editorStyle = focusedPaneStyle
	}

	tree := treeStyle.Width(treeWidth).Height(bodyHeight).Render(m.viewTree(bodyHeight))
	editor := editorStyle.Width(max(m.width-treeWidth-4, 20)).Height(bodyHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.viewTabs(), m.editor.View()))
	status := paneStyle.Width(max(m.width-2, 20)).Height(statusHeight - 2).Render(m.viewStatus())

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, tree, editor),
		status,
		m.help.View(m.keys),
	)
}

func (m *Model) viewTree(height int) string {
	if len(m.rows) == 0 {
		return dimStyle.Render("(empty)")
	}

	// Scroll so the cursor stays visible.
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.rows))

	var b strings.Builder
	for i := start; i < end; i++ {
		e := m.rows[i]
		line := strings.Repeat("  ", e.Depth) + treeLabel(e)
		if r := []rune(line); len(r) > treeWidth-1 {
			line = string(r[:treeWidth-1])
		}
		switch {
		case i == m.cursor && m.focus == focusTree:
			line = cursorStyle.Render(line)
		case e.IsSelected:
			line = selectedStyle.Render(line)
		case e.IsDir():
			line = dirStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func treeLabel(e models.Entry) string {
	if !e.IsDir() {
		return "  " + e.Name()
	}
	if e.IsDirectoryOpen {
		return "▾ " + e.Name() + "/"
	}
	return "▸ " + e.Name() + "/"
}

func (m *Model) viewTabs() string {
	tabs := m.ws.Documents.Tabs()
	if len(tabs) == 0 {
		return dimStyle.Render("no open files")
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.Active {
			parts = append(parts, activeTab.Render(t.Label))
		} else {
			parts = append(parts, inactiveTab.Render(t.Label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) viewStatus() string {
	var lines []string

	if m.dialog != dialogNone {
		lines = append(lines, m.viewDialog()...)
	} else if progress := m.ws.Upload.Progress(); len(progress) > 0 {
		lines = append(lines, titleStyle.Render("Uploads"))
		for _, p := range progress {
			lines = append(lines, fmt.Sprintf("%s  Uploaded %s of %s",
				p.Filename, humanize.Bytes(uint64(p.Loaded)), humanize.Bytes(uint64(p.Total))))
		}
	}

	for _, n := range m.notices {
		lines = append(lines, noticeStyle[n.Level].Render(n.Message))
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%d entries", len(m.rows))))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewDialog() []string {
	if m.dialog == dialogDelete {
		target := m.ws.Delete.Target()
		return []string{titleStyle.Render(fmt.Sprintf("Delete %s? (y to confirm)", target.FilePath))}
	}

	lines := []string{titleStyle.Render(m.dialog.title()), m.input.View()}
	switch m.dialog {
	case dialogRename:
		if !m.ws.Rename.CanSubmit() {
			lines = append(lines, dimStyle.Render("invalid filename"))
		}
	case dialogNewFile:
		if !m.ws.NewFile.CanSubmit() {
			lines = append(lines, dimStyle.Render("invalid filename"))
		}
	case dialogNewFolder:
		if !m.ws.NewFolder.CanSubmit() {
			lines = append(lines, dimStyle.Render("invalid folder name"))
		}
	case dialogUpload:
		target := m.ws.Upload.Target().TargetDirectory()
		hint := "into " + target
		if limit := m.ws.Upload.MaxSize(); limit > 0 {
			hint += ", max " + humanize.Bytes(uint64(limit)) + " per file"
		}
		lines = append(lines, dimStyle.Render(hint))
		for _, f := range m.ws.Upload.Files() {
			lines = append(lines, m.ws.Upload.Describe(f))
		}
	}
	return lines
}
