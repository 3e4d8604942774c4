package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"golang.org/x/net/webdav"
)

func names(infos []FileInfo) []string {
	out := make([]string, 0, len(infos))
	for _, fi := range infos {
		n := fi.Name
		if fi.IsDir {
			n += "/"
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// testStoreContract exercises the behaviour every Store implementation shares.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Mkdir(ctx, "/a"); err != nil {
		t.Fatalf("mkdir /a: %v", err)
	}

	var lastWritten, lastTotal int64
	err := s.Write(ctx, "/a/x.txt", strings.NewReader("hello"), 5, func(written, total int64) {
		lastWritten, lastTotal = written, total
	})
	if err != nil {
		t.Fatalf("write /a/x.txt: %v", err)
	}
	if lastWritten != 5 || lastTotal != 5 {
		t.Errorf("expected final progress 5/5, got %d/%d", lastWritten, lastTotal)
	}
	if err := s.Write(ctx, "/b.txt", strings.NewReader("bee"), 3, nil); err != nil {
		t.Fatalf("write /b.txt: %v", err)
	}

	root, err := s.List(ctx, "/")
	if err != nil {
		t.Fatalf("list /: %v", err)
	}
	if got := strings.Join(names(root), ","); got != "a/,b.txt" {
		t.Errorf("list / = %s, want a/,b.txt", got)
	}
	for _, fi := range root {
		if fi.Name == "b.txt" && fi.Path != "/b.txt" {
			t.Errorf("expected path /b.txt, got %s", fi.Path)
		}
	}

	info, err := s.Stat(ctx, "/a/x.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != 5 || info.IsDir {
		t.Errorf("unexpected stat: %+v", info)
	}
	if _, err := s.Stat(ctx, "/missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	data, err := s.Read(ctx, "/a/x.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("read = %q, want hello", data)
	}

	if err := s.Mkdir(ctx, "/a"); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists for second mkdir, got %v", err)
	}

	if err := s.Move(ctx, "/a", "/c"); err != nil {
		t.Fatalf("move /a -> /c: %v", err)
	}
	moved, err := s.List(ctx, "/c")
	if err != nil {
		t.Fatalf("list /c: %v", err)
	}
	if got := strings.Join(names(moved), ","); got != "x.txt" {
		t.Errorf("list /c = %s, want x.txt", got)
	}
	if _, err := s.Stat(ctx, "/a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected /a to be gone, got %v", err)
	}

	if err := s.Move(ctx, "/b.txt", "/c/x.txt"); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists moving onto an existing file, got %v", err)
	}

	if err := s.Delete(ctx, "/c"); err != nil {
		t.Fatalf("delete /c: %v", err)
	}
	root, err = s.List(ctx, "/")
	if err != nil {
		t.Fatalf("list / after delete: %v", err)
	}
	if got := strings.Join(names(root), ","); got != "b.txt" {
		t.Errorf("list / after delete = %s, want b.txt", got)
	}

	if err := s.Delete(ctx, "/"); err == nil {
		t.Error("expected deleting root to fail")
	}
}

func TestWebDAVStore(t *testing.T) {
	srv := httptest.NewServer(&webdav.Handler{
		FileSystem: webdav.NewMemFS(),
		LockSystem: webdav.NewMemLS(),
	})
	defer srv.Close()

	s := NewWebDAV(WebDAVConfig{URL: srv.URL})
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	testStoreContract(t, s)
	if !s.IsOnline() {
		t.Error("expected store to be online")
	}
}

func TestWebDAVCancelledContext(t *testing.T) {
	s := NewWebDAV(WebDAVConfig{URL: "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.List(ctx, "/"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	testStoreContract(t, s)
}

func TestLocalStoreStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	if got := s.fullPath("/../../etc/passwd"); !strings.HasPrefix(got, root) {
		t.Errorf("path escaped root: %s", got)
	}
}

func TestLocalReadDirectory(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	ctx := context.Background()
	if err := s.Mkdir(ctx, "/d"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := s.Read(ctx, "/d"); !errors.Is(err, ErrIsDirectory) {
		t.Errorf("expected ErrIsDirectory, got %v", err)
	}
}

func TestS3Keys(t *testing.T) {
	tests := []struct {
		in, key, prefix string
	}{
		{"/", "", ""},
		{"/a", "a", "a/"},
		{"//a//b.txt", "a/b.txt", "a/b.txt/"},
		{"/a/b/", "a/b", "a/b/"},
	}
	for _, tt := range tests {
		if got := objectKey(tt.in); got != tt.key {
			t.Errorf("objectKey(%q) = %q, want %q", tt.in, got, tt.key)
		}
		if got := prefixKey(tt.in); got != tt.prefix {
			t.Errorf("prefixKey(%q) = %q, want %q", tt.in, got, tt.prefix)
		}
	}
}
