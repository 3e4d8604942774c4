package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/studio-b12/gowebdav"
	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
	"github.com/crowdwave/reactoxide/pkg/retry"
)

// WebDAVConfig holds WebDAV client settings.
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// WebDAV implements Store against a WebDAV server.
type WebDAV struct {
	client *gowebdav.Client

	mu       sync.RWMutex
	online   bool
	lastPing time.Time
}

// NewWebDAV creates a WebDAV store. No request is made until the first call.
func NewWebDAV(cfg WebDAVConfig) *WebDAV {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	c.SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	c.SetTimeout(cfg.Timeout)

	return &WebDAV{client: c, online: true}
}

// IsOnline reports whether the last request reached the server.
func (w *WebDAV) IsOnline() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.online
}

func (w *WebDAV) setOnline(online bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.online != online {
		if online {
			logging.Info("webdav server is back online")
		} else {
			logging.Error("webdav server is offline")
		}
	}
	w.online = online
	w.lastPing = time.Now()
}

// Ping checks that the server answers and the credentials are accepted.
func (w *WebDAV) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := w.client.Connect()
	w.track(err)
	return err
}

// WaitOnline pings the server with backoff until it answers. Authentication failures
// are not retried.
func (w *WebDAV) WaitOnline(ctx context.Context, cfg retry.Config) error {
	return retry.Do(ctx, cfg, func() error {
		err := w.Ping(ctx)
		if err == nil {
			return nil
		}
		if gowebdav.IsErrCode(err, http.StatusUnauthorized) || gowebdav.IsErrCode(err, http.StatusForbidden) {
			return err
		}
		return retry.Retryable(err)
	}, func(attempt int, err error) {
		logging.Warn("webdav server not reachable, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
	})
}

// track updates the online flag from the outcome of a request. Protocol errors prove the
// server answered, so only transport failures mark it offline.
func (w *WebDAV) track(err error) {
	var statusErr gowebdav.StatusError
	switch {
	case err == nil, errors.As(err, &statusErr):
		w.setOnline(true)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			w.setOnline(false)
		}
	}
}

func (w *WebDAV) wrap(op, p string, err error) error {
	w.track(err)
	if err == nil {
		return nil
	}
	if gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("%s %s: %w", op, p, ErrNotFound)
	}
	if gowebdav.IsErrCode(err, http.StatusPreconditionFailed) {
		return fmt.Errorf("%s %s: %w", op, p, ErrExists)
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}

// List returns the immediate children of dir.
func (w *WebDAV) List(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	infos, err := w.client.ReadDir(pathutil.Dir(dir))
	observe("list", start, err)
	if err != nil {
		return nil, w.wrap("list", dir, err)
	}
	w.track(nil)

	out := make([]FileInfo, 0, len(infos))
	for _, fi := range infos {
		out = append(out, FileInfo{
			Path:    pathutil.Join(dir, fi.Name()),
			Name:    fi.Name(),
			IsDir:   fi.IsDir(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return out, nil
}

// Stat returns information about p.
func (w *WebDAV) Stat(ctx context.Context, p string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	start := time.Now()
	fi, err := w.client.Stat(pathutil.Clean(p))
	observe("stat", start, err)
	if err != nil {
		return FileInfo{}, w.wrap("stat", p, err)
	}
	w.track(nil)
	return FileInfo{
		Path:    pathutil.Clean(p),
		Name:    pathutil.Base(p),
		IsDir:   fi.IsDir(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}, nil
}

// Read returns the contents of the file at p.
func (w *WebDAV) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := w.client.Read(pathutil.Clean(p))
	observe("read", start, err)
	if err != nil {
		return nil, w.wrap("read", p, err)
	}
	w.track(nil)
	metrics.RecordBytes("read", int64(len(data)))
	return data, nil
}

// Write uploads body to p, replacing any existing file.
func (w *WebDAV) Write(ctx context.Context, p string, body io.Reader, size int64, progress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := w.client.WriteStream(pathutil.Clean(p), newProgressReader(body, size, progress), 0644)
	observe("write", start, err)
	if err != nil {
		return w.wrap("write", p, err)
	}
	w.track(nil)
	metrics.RecordBytes("write", size)
	logging.Debug("webdav write", zap.String("path", p), zap.Int64("size", size))
	return nil
}

// Delete removes p, recursively for directories.
func (w *WebDAV) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pathutil.IsRoot(p) {
		return fmt.Errorf("delete %s: refusing to delete root", p)
	}
	start := time.Now()
	err := w.client.RemoveAll(pathutil.Clean(p))
	observe("delete", start, err)
	return w.wrap("delete", p, err)
}

// Move renames from to to without overwriting.
func (w *WebDAV) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := w.client.Rename(pathutil.Clean(from), pathutil.Clean(to), false)
	observe("move", start, err)
	return w.wrap("move", from, err)
}

// Mkdir creates the directory p. The client reports MKCOL on an existing collection as
// success, so existence is checked first.
func (w *WebDAV) Mkdir(ctx context.Context, p string) error {
	if _, err := w.Stat(ctx, p); err == nil {
		return fmt.Errorf("mkdir %s: %w", p, ErrExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	start := time.Now()
	err := w.client.Mkdir(pathutil.Clean(p), 0755)
	observe("mkdir", start, err)
	return w.wrap("mkdir", p, err)
}
