// Package davserver serves a local directory over WebDAV for development and tests.
package davserver

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/webdav"

	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
)

// Options configures the handler.
type Options struct {
	Root         string // directory to serve
	Prefix       string // URL prefix stripped before resolving paths
	Username     string
	PasswordHash string // bcrypt; empty disables authentication
}

// NewHandler returns the WebDAV handler for opts.Root, wrapped with request logging,
// metrics and, when credentials are configured, basic authentication. GET /health is
// answered without authentication.
func NewHandler(opts Options) (http.Handler, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("dav root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dav root %s is not a directory", opts.Root)
	}
	return newHandler(webdav.Dir(opts.Root), opts), nil
}

// NewMemHandler is NewHandler over an in-memory filesystem.
func NewMemHandler(opts Options) http.Handler {
	return newHandler(webdav.NewMemFS(), opts)
}

func newHandler(fs webdav.FileSystem, opts Options) http.Handler {
	dav := &webdav.Handler{
		FileSystem: fs,
		LockSystem: webdav.NewMemLS(),
		Prefix:     opts.Prefix,
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logging.Debug("webdav request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}
		},
	}

	var h http.Handler = dav
	if opts.PasswordHash != "" {
		h = BasicAuth(opts.Username, opts.PasswordHash)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	mux.Handle("/", h)

	return logging.Middleware(metrics.Middleware(mux))
}

// BasicAuth rejects requests whose basic-auth credentials do not match username and the
// bcrypt hash.
func BasicAuth(username, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="oxide"`)
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) != nil {
				logging.Warn("webdav auth failed", zap.String("username", user))
				w.Header().Set("WWW-Authenticate", `Basic realm="oxide"`)
				http.Error(w, "Invalid credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
