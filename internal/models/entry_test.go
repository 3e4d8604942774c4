package models

import "testing"

func TestNewEntry(t *testing.T) {
	dir := NewEntry("/a//b/", Directory)
	if dir.ID != "/a/b/" {
		t.Errorf("dir ID = %q, want /a/b/", dir.ID)
	}
	if dir.FilePath != "/a/b" {
		t.Errorf("dir FilePath = %q, want /a/b", dir.FilePath)
	}
	if dir.ContainingDirectoryPath != "/a/" {
		t.Errorf("dir container = %q, want /a/", dir.ContainingDirectoryPath)
	}
	if dir.Depth != 1 {
		t.Errorf("dir depth = %d, want 1", dir.Depth)
	}

	file := NewEntry("/b.txt", File)
	if file.ID != "/b.txt" || file.ContainingDirectoryPath != "/" || file.Depth != 0 {
		t.Errorf("unexpected file entry: %+v", file)
	}
}

func TestTargetDirectory(t *testing.T) {
	if got := NewEntry("/a/b", Directory).TargetDirectory(); got != "/a/b/" {
		t.Errorf("directory target = %q, want /a/b/", got)
	}
	if got := NewEntry("/a/b/c.go", File).TargetDirectory(); got != "/a/b/" {
		t.Errorf("file target = %q, want /a/b/", got)
	}
	if got := RootEntry().TargetDirectory(); got != "/" {
		t.Errorf("root target = %q, want /", got)
	}
}
