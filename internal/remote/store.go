// Package remote defines the Store interface for the hierarchical file store the editor
// works against, and provides WebDAV, S3 and local-directory implementations.
package remote

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/crowdwave/reactoxide/internal/metrics"
)

var (
	// ErrNotFound is returned when a path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a move or mkdir target already exists.
	ErrExists = errors.New("already exists")
	// ErrIsDirectory is returned when a file operation is applied to a directory.
	ErrIsDirectory = errors.New("is a directory")
)

// FileInfo describes one node of the remote store.
type FileInfo struct {
	Path    string // clean file path, "/a/b.txt"
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// ProgressFunc receives bytes written so far and the expected total.
type ProgressFunc func(written, total int64)

// Store is the remote file store. Paths are slash-separated and rooted at "/".
// Implementations do not retry; failures are returned to the caller as-is.
type Store interface {
	// List returns the immediate children of dir.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Stat returns information about a single path.
	Stat(ctx context.Context, p string) (FileInfo, error)

	// Read returns the full contents of a file.
	Read(ctx context.Context, p string) ([]byte, error)

	// Write replaces the contents of a file. progress may be nil.
	Write(ctx context.Context, p string, body io.Reader, size int64, progress ProgressFunc) error

	// Delete removes a file, or a directory and everything below it.
	Delete(ctx context.Context, p string) error

	// Move renames from to to. The target must not exist.
	Move(ctx context.Context, from, to string) error

	// Mkdir creates a directory. Its parent must exist.
	Mkdir(ctx context.Context, p string) error
}

// observe records the outcome of a store call.
func observe(op string, start time.Time, err error) {
	metrics.RecordRemoteOperation(op, time.Since(start), err)
}

// progressReader reports bytes read through it.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, progress ProgressFunc) io.Reader {
	if progress == nil {
		return r
	}
	return &progressReader{r: r, total: total, progress: progress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.progress(p.read, p.total)
	}
	return n, err
}
