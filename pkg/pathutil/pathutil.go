// Package pathutil provides the canonical path forms used for the remote file tree.
//
// Two identities exist for every node: a file path ("/a/b.txt", root is "/") and, for
// directories, a directory identity with exactly one leading and one trailing separator
// ("/a/"). Repeated separators and empty segments are always collapsed.
package pathutil

import "strings"

// Separator is the path separator of the remote store.
const Separator = "/"

// Root is the identity of the root directory.
const Root = "/"

func segments(p string) []string {
	parts := strings.Split(p, Separator)
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Dir returns the directory identity of p: one leading and one trailing separator.
func Dir(p string) string {
	segs := segments(p)
	if len(segs) == 0 {
		return Root
	}
	return Separator + strings.Join(segs, Separator) + Separator
}

// Clean returns p with a single leading separator and no trailing one. Root stays "/".
func Clean(p string) string {
	segs := segments(p)
	if len(segs) == 0 {
		return Root
	}
	return Separator + strings.Join(segs, Separator)
}

// Base returns the final segment of p, or "" for root.
func Base(p string) string {
	segs := segments(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Parent returns the directory identity of the directory containing p.
func Parent(p string) string {
	segs := segments(p)
	if len(segs) <= 1 {
		return Root
	}
	return Separator + strings.Join(segs[:len(segs)-1], Separator) + Separator
}

// Join builds the file path of name inside dir.
func Join(dir, name string) string {
	return Clean(Dir(dir) + name)
}

// Depth returns how far below root p sits; children of root have depth 0.
func Depth(p string) int {
	return len(segments(p)) - 1
}

// IsRoot reports whether p names the root directory.
func IsRoot(p string) bool {
	return len(segments(p)) == 0
}

// IsWithin reports whether p is strictly nested under dir. The match is made against the
// directory identity, so "/foobar" is never within "/foo".
func IsWithin(p, dir string) bool {
	if IsRoot(p) {
		return false
	}
	return strings.HasPrefix(Clean(p), Dir(dir))
}
