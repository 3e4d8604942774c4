package pathutil

import "testing"

func TestDir(t *testing.T) {
	cases := map[string]string{
		"":          "/",
		"/":         "/",
		"//":        "/",
		"a":         "/a/",
		"/a":        "/a/",
		"/a/":       "/a/",
		"//a///b//": "/a/b/",
	}
	for in, want := range cases {
		if got := Dir(in); got != want {
			t.Errorf("Dir(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		"":            "/",
		"/":           "/",
		"a/b.txt":     "/a/b.txt",
		"/a//b.txt":   "/a/b.txt",
		"/a/b/":       "/a/b",
		"///x///y///": "/x/y",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParentAndBase(t *testing.T) {
	if got := Parent("/a/b/c.txt"); got != "/a/b/" {
		t.Errorf("Parent = %q, want /a/b/", got)
	}
	if got := Parent("/a/"); got != "/" {
		t.Errorf("Parent(/a/) = %q, want /", got)
	}
	if got := Parent("/"); got != "/" {
		t.Errorf("Parent(/) = %q, want /", got)
	}
	if got := Base("/a/b/"); got != "b" {
		t.Errorf("Base = %q, want b", got)
	}
	if got := Base("/"); got != "" {
		t.Errorf("Base(/) = %q, want empty", got)
	}
}

func TestJoinAndDepth(t *testing.T) {
	if got := Join("/a/", "b.txt"); got != "/a/b.txt" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("/", "b.txt"); got != "/b.txt" {
		t.Errorf("Join root = %q", got)
	}
	if d := Depth("/b.txt"); d != 0 {
		t.Errorf("Depth(/b.txt) = %d, want 0", d)
	}
	if d := Depth("/a/b/c.txt"); d != 2 {
		t.Errorf("Depth(/a/b/c.txt) = %d, want 2", d)
	}
}

func TestIsWithin(t *testing.T) {
	cases := []struct {
		p, dir string
		want   bool
	}{
		{"/foo/x.txt", "/foo", true},
		{"/foo/bar/", "/foo/", true},
		{"/foo", "/foo", false},
		{"/foo/", "/foo", false},
		{"/foobar", "/foo", false},
		{"/foobar/x", "/foo/", false},
		{"/anything", "/", true},
	}
	for _, c := range cases {
		if got := IsWithin(c.p, c.dir); got != c.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", c.p, c.dir, got, c.want)
		}
	}
}
