// Package models contains the data types shared by the tree, documents and command flows.
package models

import "github.com/crowdwave/reactoxide/pkg/pathutil"

// EntryType distinguishes files from directories.
type EntryType string

const (
	File      EntryType = "file"
	Directory EntryType = "directory"
)

// Entry is one file or directory record in the tree snapshot.
type Entry struct {
	ID                      string    `json:"id"`
	FilePath                string    `json:"filePath"`
	ContainingDirectoryPath string    `json:"containingDirectoryPath"`
	Type                    EntryType `json:"type"`
	Depth                   int       `json:"depth"`
	IsDirectoryOpen         bool      `json:"isDirectoryOpen"`
	IsSelected              bool      `json:"isSelected"`
}

// NewEntry builds an entry for filePath, deriving its identity, container and depth.
func NewEntry(filePath string, typ EntryType) Entry {
	e := Entry{
		FilePath:                pathutil.Clean(filePath),
		ContainingDirectoryPath: pathutil.Parent(filePath),
		Type:                    typ,
		Depth:                   pathutil.Depth(filePath),
	}
	if typ == Directory {
		e.ID = pathutil.Dir(filePath)
	} else {
		e.ID = e.FilePath
	}
	return e
}

// RootEntry returns the entry standing for the root directory. It is never stored in a snapshot.
func RootEntry() Entry {
	return Entry{
		ID:                      pathutil.Root,
		FilePath:                pathutil.Root,
		ContainingDirectoryPath: pathutil.Root,
		Type:                    Directory,
		Depth:                   -1,
		IsDirectoryOpen:         true,
	}
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == Directory
}

// Name returns the final path segment.
func (e Entry) Name() string {
	return pathutil.Base(e.FilePath)
}

// TargetDirectory is the directory that create and upload operations write into:
// the entry itself for directories, else its containing directory.
func (e Entry) TargetDirectory() string {
	if e.IsDir() {
		return pathutil.Dir(e.FilePath)
	}
	return e.ContainingDirectoryPath
}
