package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/crowdwave/reactoxide/internal/metrics"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

const tempPrefix = ".oxide-"

// Local implements Store on a directory of the local filesystem.
type Local struct {
	rootPath string
}

// NewLocal creates a local store rooted at rootPath, which must be an existing directory.
func NewLocal(rootPath string) (*Local, error) {
	if rootPath == "" {
		return nil, fmt.Errorf("root path is required")
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("stat root path %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", rootPath)
	}
	return &Local{rootPath: rootPath}, nil
}

// fullPath resolves p below the root. ".." segments cannot climb above it.
func (l *Local) fullPath(p string) string {
	return filepath.Join(l.rootPath, filepath.FromSlash(path.Clean("/"+p)))
}

func localErr(op, p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", op, p, ErrNotFound)
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s %s: %w", op, p, ErrExists)
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}

// List returns the immediate children of dir.
func (l *Local) List(_ context.Context, dir string) ([]FileInfo, error) {
	start := time.Now()
	entries, err := os.ReadDir(l.fullPath(dir))
	observe("list", start, err)
	if err != nil {
		return nil, localErr("list", dir, err)
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Path:    pathutil.Join(dir, e.Name()),
			Name:    e.Name(),
			IsDir:   e.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Stat returns information about p.
func (l *Local) Stat(_ context.Context, p string) (FileInfo, error) {
	start := time.Now()
	info, err := os.Stat(l.fullPath(p))
	observe("stat", start, err)
	if err != nil {
		return FileInfo{}, localErr("stat", p, err)
	}
	return FileInfo{
		Path:    pathutil.Clean(p),
		Name:    pathutil.Base(p),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Read returns the contents of the file at p.
func (l *Local) Read(_ context.Context, p string) ([]byte, error) {
	start := time.Now()
	full := l.fullPath(p)
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return nil, fmt.Errorf("read %s: %w", p, ErrIsDirectory)
	}
	data, err := os.ReadFile(full)
	observe("read", start, err)
	if err != nil {
		return nil, localErr("read", p, err)
	}
	metrics.RecordBytes("read", int64(len(data)))
	return data, nil
}

// Write replaces the file at p atomically. The parent directory must exist.
func (l *Local) Write(ctx context.Context, p string, body io.Reader, size int64, progress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	full := l.fullPath(p)

	// Write to temp file then rename for atomicity
	tmp, err := os.CreateTemp(filepath.Dir(full), tempPrefix+"*.tmp")
	if err != nil {
		observe("write", start, err)
		return localErr("write", p, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, newProgressReader(body, size, progress))
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		observe("write", start, err)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		observe("write", start, err)
		return fmt.Errorf("close temp for %s: %w", p, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		observe("write", start, err)
		return fmt.Errorf("rename temp to %s: %w", p, err)
	}

	observe("write", start, nil)
	metrics.RecordBytes("write", n)
	return nil
}

// Delete removes p and everything below it.
func (l *Local) Delete(_ context.Context, p string) error {
	if pathutil.IsRoot(p) {
		return fmt.Errorf("delete %s: refusing to delete root", p)
	}
	start := time.Now()
	full := l.fullPath(p)
	if _, err := os.Lstat(full); err != nil {
		observe("delete", start, err)
		return localErr("delete", p, err)
	}
	err := os.RemoveAll(full)
	observe("delete", start, err)
	if err != nil {
		return localErr("delete", p, err)
	}
	return nil
}

// Move renames from to to. The target must not exist.
func (l *Local) Move(_ context.Context, from, to string) error {
	start := time.Now()
	dst := l.fullPath(to)
	if _, err := os.Lstat(dst); err == nil {
		observe("move", start, fs.ErrExist)
		return fmt.Errorf("move %s: %w", to, ErrExists)
	}
	err := os.Rename(l.fullPath(from), dst)
	observe("move", start, err)
	if err != nil {
		return localErr("move", from, err)
	}
	return nil
}

// Mkdir creates the directory p.
func (l *Local) Mkdir(_ context.Context, p string) error {
	start := time.Now()
	err := os.Mkdir(l.fullPath(p), 0755)
	observe("mkdir", start, err)
	if err != nil {
		return localErr("mkdir", p, err)
	}
	return nil
}
