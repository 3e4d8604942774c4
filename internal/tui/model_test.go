package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crowdwave/reactoxide/internal/commands"
	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/internal/workspace"
)

func newTestModel(t *testing.T, files map[string]string) (*Model, *workspace.Workspace, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := remote.NewLocal(root)
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	ws := workspace.New(store, workspace.DefaultOptions())
	if err := ws.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	t.Cleanup(ws.Close)

	m := New(ws)
	t.Cleanup(m.Close)
	return m, ws, root
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg, waits for the remote work it started and lets the model refresh.
func press(m *Model, ws *workspace.Workspace, msg tea.Msg) {
	m.Update(msg)
	ws.Wait()
	m.Update(busMsg{})
}

func TestViewShowsTree(t *testing.T) {
	m, _, _ := newTestModel(t, map[string]string{"src/main.go": "package main", "README.md": "# hi"})

	view := m.View()
	for _, want := range []string{"▸ src/", "README.md", "no open files"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestOpenDirectoryAndFile(t *testing.T) {
	m, ws, _ := newTestModel(t, map[string]string{"src/main.go": "package main"})

	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.rows) != 2 || !m.rows[0].IsDirectoryOpen {
		t.Fatalf("expected /src/ expanded, rows %+v", m.rows)
	}

	press(m, ws, keys("j"))
	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})
	if m.active != "/src/main.go" {
		t.Fatalf("expected /src/main.go active, got %q", m.active)
	}
	if m.editor.Value() != "package main" {
		t.Errorf("editor holds %q", m.editor.Value())
	}
	if !strings.Contains(m.View(), "main.go") {
		t.Error("expected a tab for main.go")
	}
}

func TestOpenDirectorySelectsIt(t *testing.T) {
	m, ws, _ := newTestModel(t, map[string]string{"src/main.go": "package main"})

	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.rows[0].IsSelected || !m.rows[0].IsDirectoryOpen {
		t.Fatalf("expected /src/ selected and open, got %+v", m.rows[0])
	}
	if sel, ok := ws.Tree.Selected(); !ok || sel.ID != "/src/" {
		t.Errorf("expected /src/ selected in the tree, got %+v", sel)
	}

	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.rows) != 1 || m.rows[0].IsDirectoryOpen {
		t.Fatalf("expected /src/ collapsed, rows %+v", m.rows)
	}
	if !m.rows[0].IsSelected {
		t.Error("expected /src/ to stay selected after collapsing")
	}
}

func TestNewFileDialog(t *testing.T) {
	m, ws, root := newTestModel(t, map[string]string{"a.txt": "a"})

	press(m, ws, keys("n"))
	if m.dialog != dialogNewFile {
		t.Fatalf("expected the new file dialog, got %v", m.dialog)
	}
	press(m, ws, keys("b.txt"))
	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})

	if m.dialog != dialogNone {
		t.Errorf("expected the dialog closed")
	}
	if _, err := os.Stat(filepath.Join(root, "b.txt")); err != nil {
		t.Errorf("expected b.txt created: %v", err)
	}
	if len(m.rows) != 2 {
		t.Errorf("expected two rows, got %+v", m.rows)
	}
}

func TestInvalidNameKeepsDialogOpen(t *testing.T) {
	m, ws, _ := newTestModel(t, map[string]string{"a.txt": "a"})

	press(m, ws, keys("N"))
	press(m, ws, keys("bad:name"))
	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})

	if m.dialog != dialogNewFolder {
		t.Fatalf("expected the dialog to stay open, got %v", m.dialog)
	}
	if ws.NewFolder.State() != commands.Editing {
		t.Errorf("expected the flow still editing, got %s", ws.NewFolder.State())
	}

	press(m, ws, tea.KeyMsg{Type: tea.KeyEsc})
	if m.dialog != dialogNone || ws.NewFolder.State() != commands.Closed {
		t.Error("expected esc to cancel the dialog")
	}
}

func TestRenameOfOpenFileIsRefused(t *testing.T) {
	m, ws, root := newTestModel(t, map[string]string{"a.txt": "a"})

	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})
	press(m, ws, keys("r"))

	if m.dialog != dialogNone {
		t.Fatalf("expected no rename dialog, got %v", m.dialog)
	}
	if len(m.notices) == 0 || m.notices[len(m.notices)-1].Message != commands.BlockedFileOpen {
		t.Errorf("expected the blocked notice, got %+v", m.notices)
	}
	if _, err := os.Stat(filepath.Join(root, "a.txt")); err != nil {
		t.Error("file must not move")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, ws, root := newTestModel(t, map[string]string{"a.txt": "a", "b.txt": "b"})

	press(m, ws, keys("d"))
	press(m, ws, keys("x"))
	if _, err := os.Stat(filepath.Join(root, "a.txt")); err != nil {
		t.Fatal("a key other than y must cancel the delete")
	}

	press(m, ws, keys("d"))
	if !strings.Contains(m.View(), "Delete /a.txt?") {
		t.Errorf("expected the confirmation prompt")
	}
	press(m, ws, keys("y"))
	if _, err := os.Stat(filepath.Join(root, "a.txt")); !os.IsNotExist(err) {
		t.Errorf("expected a.txt deleted, got %v", err)
	}
	if len(m.rows) != 1 || m.rows[0].FilePath != "/b.txt" {
		t.Errorf("unexpected rows %+v", m.rows)
	}
}

func TestEditAndSave(t *testing.T) {
	m, ws, root := newTestModel(t, map[string]string{"a.txt": "a"})

	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})
	press(m, ws, tea.KeyMsg{Type: tea.KeyTab})
	press(m, ws, keys("b"))
	press(m, ws, tea.KeyMsg{Type: tea.KeyCtrlS})

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != m.editor.Value() || len(data) != 2 {
		t.Errorf("saved %q, editor holds %q", data, m.editor.Value())
	}
}

func TestUploadDialog(t *testing.T) {
	m, ws, root := newTestModel(t, nil)

	local := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(local, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	press(m, ws, keys("u"))
	press(m, ws, keys(local))
	if !strings.Contains(m.View(), "notes.txt 5 B") {
		t.Errorf("expected the picked file listed:\n%s", m.View())
	}
	press(m, ws, tea.KeyMsg{Type: tea.KeyEnter})

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("expected notes.txt uploaded, got %q %v", data, err)
	}
	if ws.Upload.State() != commands.Closed {
		t.Errorf("expected the upload flow closed, got %s", ws.Upload.State())
	}
}
