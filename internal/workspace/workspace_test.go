package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/commands"
	"github.com/crowdwave/reactoxide/internal/davserver"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/internal/remote"
)

type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func record[T any](b *bus.Bus, topic bus.Topic[T]) *recorder[T] {
	r := &recorder[T]{}
	bus.Subscribe(b, topic, func(v T) {
		r.mu.Lock()
		r.got = append(r.got, v)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

// newTestWorkspace serves root over WebDAV and mounts a workspace on it.
func newTestWorkspace(t *testing.T, root string, opts Options) *Workspace {
	t.Helper()
	h, err := davserver.NewHandler(davserver.Options{Root: root})
	if err != nil {
		t.Fatalf("dav handler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := remote.NewWebDAV(remote.WebDAVConfig{URL: srv.URL, Timeout: 5 * time.Second})
	w := New(store, opts)
	if err := w.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func exists(root, name string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(name)))
	return err == nil
}

func ids(entries []models.Entry) string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return strings.Join(out, ",")
}

func lookup(t *testing.T, w *Workspace, id string) models.Entry {
	t.Helper()
	e, ok := w.Tree.Lookup(id)
	if !ok {
		t.Fatalf("%s not in snapshot: %s", id, ids(w.Tree.Entries()))
	}
	return e
}

func openDir(t *testing.T, w *Workspace, id string) {
	t.Helper()
	bus.Publish(w.Bus, bus.OnDirectoryOpen, lookup(t, w, id))
	w.Wait()
}

func TestMountSelectAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "a"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "b.txt", "bee")

	w := newTestWorkspace(t, root, DefaultOptions())
	loads := record(w.Bus, bus.DoLoadFile)

	if got := ids(w.Tree.Entries()); got != "/a/,/b.txt" {
		t.Fatalf("entries = %s, want /a/,/b.txt", got)
	}

	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/b.txt"))
	w.Wait()

	if n := len(loads.all()); n != 1 {
		t.Fatalf("expected one load command, got %d", n)
	}
	if active, ok := w.Documents.Active(); !ok || active != "/b.txt" {
		t.Fatalf("expected /b.txt active, got %q", active)
	}
	if text, _ := w.Registry.Text("/b.txt"); text != "bee" {
		t.Errorf("expected buffer text bee, got %q", text)
	}
	if sel, ok := w.Tree.Selected(); !ok || sel.ID != "/b.txt" {
		t.Errorf("expected /b.txt selected, got %+v", sel)
	}

	// Selecting an open file activates it without another load.
	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/b.txt"))
	w.Wait()
	if n := len(loads.all()); n != 1 {
		t.Errorf("expected no reload of an open file, got %d loads", n)
	}
}

func TestSelectDirectoryLoadsIt(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.go", "package main")

	w := newTestWorkspace(t, root, DefaultOptions())
	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/src/"))
	w.Wait()

	if got := ids(w.Tree.Rows()); got != "/src/,/src/main.go" {
		t.Errorf("rows = %s", got)
	}
	if !lookup(t, w, "/src/").IsDirectoryOpen {
		t.Error("expected /src/ open")
	}
}

func TestRenameBlockedWhileNestedFileOpen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dir/sub/file.txt", "x")

	w := newTestWorkspace(t, root, DefaultOptions())
	moves := record(w.Bus, bus.DoRenameFileOrDirectory)

	openDir(t, w, "/dir/")
	openDir(t, w, "/dir/sub/")
	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/dir/sub/file.txt"))
	w.Wait()

	if got := w.Rename.Arm(lookup(t, w, "/dir/")); got != commands.Blocked {
		t.Fatalf("expected Blocked, got %s", got)
	}
	w.Rename.SetInput("renamed")
	if err := w.Rename.Submit(); err == nil {
		t.Error("expected submit of a blocked rename to fail")
	}
	w.Wait()
	if len(moves.all()) != 0 || !exists(root, "dir/sub/file.txt") {
		t.Fatal("blocked rename must not reach the store")
	}

	// Once the tab is closed the rename goes through and the tree follows it.
	w.Documents.Close("/dir/sub/file.txt")
	if got := w.Rename.Arm(lookup(t, w, "/dir/")); got != commands.Editing {
		t.Fatalf("expected Editing, got %s", got)
	}
	w.Rename.SetInput("renamed")
	if err := w.Rename.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	w.Wait()

	if !exists(root, "renamed/sub/file.txt") || exists(root, "dir") {
		t.Error("expected the directory to move on disk")
	}
	if got := ids(w.Tree.Entries()); got != "/renamed/" {
		t.Errorf("entries after rename = %s, want /renamed/", got)
	}
	if _, ok := w.Tree.Selected(); ok {
		t.Error("expected selection cleared after rename")
	}
}

func TestRenameOpenFileMovesTab(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "# notes")

	w := newTestWorkspace(t, root, DefaultOptions())
	renamed := record(w.Bus, bus.OnFileRenamed)

	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/notes.md"))
	w.Wait()

	// Rename issued directly, bypassing the dialog guard.
	bus.Publish(w.Bus, bus.DoRenameFileOrDirectory, models.Rename{
		Entry:           lookup(t, w, "/notes.md"),
		DestinationName: "some/path/todo.md",
	})
	w.Wait()

	got := renamed.all()
	if len(got) != 1 || got[0].NewPath != "/todo.md" {
		t.Fatalf("unexpected rename notifications: %+v", got)
	}
	if active, _ := w.Documents.Active(); active != "/todo.md" {
		t.Errorf("expected the tab to follow the file, active %q", active)
	}
	if got := ids(w.Tree.Entries()); got != "/todo.md" {
		t.Errorf("entries = %s", got)
	}
}

func TestRenameOntoExistingReportsFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "b.txt", "b")

	w := newTestWorkspace(t, root, DefaultOptions())
	failed := record(w.Bus, bus.OnOperationFailed)
	notices := record(w.Bus, bus.OnNotice)
	renamed := record(w.Bus, bus.OnFileRenamed)

	bus.Publish(w.Bus, bus.DoRenameFileOrDirectory, models.Rename{Entry: lookup(t, w, "/a.txt"), DestinationName: "b.txt"})
	w.Wait()

	f := failed.all()
	if len(f) != 1 || f[0].Op != "rename" || f[0].Path != "/a.txt" {
		t.Fatalf("unexpected failures: %+v", f)
	}
	if !errors.Is(f[0].Err, remote.ErrExists) {
		t.Errorf("expected ErrExists, got %v", f[0].Err)
	}
	if len(renamed.all()) != 0 {
		t.Error("no success notification expected")
	}
	if n := notices.all(); len(n) != 1 || n[0].Level != models.NoticeError {
		t.Errorf("expected one error notice, got %+v", n)
	}
}

func TestCreateAndDelete(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.go", "package main")

	w := newTestWorkspace(t, root, DefaultOptions())
	openDir(t, w, "/src/")

	w.NewFile.Arm(lookup(t, w, "/src/main.go"))
	w.NewFile.SetInput("util.go")
	if err := w.NewFile.Submit(); err != nil {
		t.Fatalf("new file: %v", err)
	}
	w.Wait()
	w.NewFolder.Arm(lookup(t, w, "/src/"))
	w.NewFolder.SetInput("internal")
	if err := w.NewFolder.Submit(); err != nil {
		t.Fatalf("new folder: %v", err)
	}
	w.Wait()

	if !exists(root, "src/util.go") || !exists(root, "src/internal") {
		t.Fatal("expected file and folder created on disk")
	}
	if got := ids(w.Tree.Rows()); got != "/src/,/src/internal/,/src/main.go,/src/util.go" {
		t.Errorf("rows = %s", got)
	}

	w.Delete.Arm(lookup(t, w, "/src/"))
	if err := w.Delete.Confirm(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w.Wait()

	if exists(root, "src") {
		t.Error("expected /src removed on disk")
	}
	if n := w.Tree.Len(); n != 0 {
		t.Errorf("expected an empty snapshot, got %s", ids(w.Tree.Entries()))
	}
}

func TestCreateExistingFileFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "precious")

	w := newTestWorkspace(t, root, DefaultOptions())
	failed := record(w.Bus, bus.OnOperationFailed)

	bus.Publish(w.Bus, bus.DoNewFileCreate, models.Create{Name: "keep.txt", Entry: models.RootEntry()})
	w.Wait()

	if f := failed.all(); len(f) != 1 || !errors.Is(f[0].Err, remote.ErrExists) {
		t.Fatalf("expected an ErrExists failure, got %+v", f)
	}
	data, _ := os.ReadFile(filepath.Join(root, "keep.txt"))
	if string(data) != "precious" {
		t.Errorf("existing file overwritten: %q", data)
	}
}

func uploadFile(name, content string) models.UploadFile {
	return models.UploadFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func TestUpload(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "in"), 0755); err != nil {
		t.Fatal(err)
	}

	w := newTestWorkspace(t, root, DefaultOptions())
	complete := record(w.Bus, bus.OnFileUploadComplete)
	openDir(t, w, "/in/")

	w.Upload.Arm(lookup(t, w, "/in/"))
	w.Upload.SetFiles([]models.UploadFile{
		uploadFile("one.txt", "11111"),
		uploadFile("../evil:name.txt", "2"),
	})
	if err := w.Upload.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	w.Wait()

	if !exists(root, "in/one.txt") || !exists(root, "in/evilname.txt") {
		t.Fatal("expected both files uploaded with sanitized names")
	}
	if n := len(complete.all()); n != 1 {
		t.Errorf("expected one completion, got %d", n)
	}
	if w.Upload.State() != commands.Closed {
		t.Errorf("expected the upload flow closed, got %s", w.Upload.State())
	}
	for _, p := range w.Upload.Progress() {
		if p.Loaded != p.Total {
			t.Errorf("%s: final progress %d/%d", p.Filename, p.Loaded, p.Total)
		}
	}
	if got := ids(w.Tree.Rows()); got != "/in/,/in/evilname.txt,/in/one.txt" {
		t.Errorf("rows = %s", got)
	}
}

func TestLoadRefusesLargeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.log", "0123456789")

	w := newTestWorkspace(t, root, Options{MaxFileSize: 4})
	notices := record(w.Bus, bus.OnNotice)
	loaded := record(w.Bus, bus.OnFileLoaded)

	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/big.log"))
	w.Wait()

	if len(loaded.all()) != 0 {
		t.Error("oversized file must not be read")
	}
	n := notices.all()
	if len(n) != 1 || n[0].Level != models.NoticeWarn || !strings.Contains(n[0].Message, "exceeds") {
		t.Errorf("expected a size notice, got %+v", n)
	}
	if len(w.Documents.OpenFiles()) != 0 {
		t.Error("no buffer expected")
	}
}

func TestSave(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")

	w := newTestWorkspace(t, root, DefaultOptions())
	saved := record(w.Bus, bus.OnFileSaved)

	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/main.go"))
	w.Wait()

	if err := w.Registry.SetText("/main.go", "package main\n\nfunc main() {}\n"); err != nil {
		t.Fatal(err)
	}
	if err := w.Documents.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	w.Wait()

	data, _ := os.ReadFile(filepath.Join(root, "main.go"))
	if string(data) != "package main\n\nfunc main() {}\n" {
		t.Errorf("unexpected content on disk: %q", data)
	}
	if s := saved.all(); len(s) != 1 || s[0].FilePath != "/main.go" {
		t.Errorf("unexpected save notifications: %+v", s)
	}
}

// stallingStore blocks reads until their context ends.
type stallingStore struct {
	remote.Store
	reading chan struct{}
}

func (s *stallingStore) Read(ctx context.Context, p string) ([]byte, error) {
	close(s.reading)
	<-ctx.Done()
	return nil, fmt.Errorf("read %s: %w", p, ctx.Err())
}

func TestCloseDropsCancelledWork(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	local, err := remote.NewLocal(root)
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	store := &stallingStore{Store: local, reading: make(chan struct{})}

	w := New(store, DefaultOptions())
	if err := w.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	failures := record(w.Bus, bus.OnOperationFailed)
	notices := record(w.Bus, bus.OnNotice)

	bus.Publish(w.Bus, bus.DoSelectFileOrDirectory, lookup(t, w, "/a.txt"))
	<-store.reading
	w.Close()

	if got := failures.all(); len(got) != 0 {
		t.Errorf("expected no failures on close, got %+v", got)
	}
	for _, n := range notices.all() {
		if n.Level == models.NoticeError {
			t.Errorf("unexpected error notice on close: %s", n.Message)
		}
	}
}
