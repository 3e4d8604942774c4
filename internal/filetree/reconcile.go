package filetree

import (
	"sort"

	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// Snapshot is the materialized part of the remote tree, keyed by entry ID.
type Snapshot map[string]models.Entry

// reconcile merges the freshly listed children of dir into prev and returns a new
// snapshot. prev is not modified. The result depends only on its arguments, so running
// it twice with the same listing is a no-op.
func reconcile(prev Snapshot, dir string, fetched []remote.FileInfo) Snapshot {
	dirID := pathutil.Dir(dir)

	open := map[string]bool{pathutil.Root: true, dirID: true}
	selected := ""
	for id, e := range prev {
		if e.IsDir() && e.IsDirectoryOpen {
			open[id] = true
		}
		if e.IsSelected {
			selected = id
		}
	}

	next := make(Snapshot, len(prev)+len(fetched))
	for id, e := range prev {
		if e.ContainingDirectoryPath != dirID {
			next[id] = e
		}
	}
	for _, fi := range fetched {
		name := fi.Name
		if name == "" {
			name = pathutil.Base(fi.Path)
		}
		typ := models.File
		if fi.IsDir {
			typ = models.Directory
		}
		e := models.NewEntry(pathutil.Join(dirID, name), typ)
		next[e.ID] = e
	}

	for id, e := range next {
		e.IsDirectoryOpen = e.IsDir() && open[id]
		e.IsSelected = id == selected
		next[id] = e
	}

	reachable := closure(next, open)
	for id, e := range next {
		if !reachable[e.ContainingDirectoryPath] {
			delete(next, id)
		}
	}
	return next
}

// closure returns the open directories whose whole ancestry is open and present in s.
// Root always belongs to it.
func closure(s Snapshot, open map[string]bool) map[string]bool {
	dirs := make([]string, 0, len(open))
	for id := range open {
		if id != pathutil.Root {
			dirs = append(dirs, id)
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		return pathutil.Depth(dirs[i]) < pathutil.Depth(dirs[j])
	})

	reachable := map[string]bool{pathutil.Root: true}
	for _, id := range dirs {
		e, ok := s[id]
		if ok && e.IsDir() && reachable[e.ContainingDirectoryPath] {
			reachable[id] = true
		}
	}
	return reachable
}

// withoutNested returns s minus every entry strictly below dir.
func withoutNested(s Snapshot, dir string) Snapshot {
	next := make(Snapshot, len(s))
	for id, e := range s {
		if !pathutil.IsWithin(e.FilePath, dir) {
			next[id] = e
		}
	}
	return next
}

// less orders directories before files, each group ascending by path.
func less(a, b models.Entry) bool {
	if a.IsDir() != b.IsDir() {
		return a.IsDir()
	}
	return a.FilePath < b.FilePath
}
