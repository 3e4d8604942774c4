// Oxide development WebDAV server
//
// Serves a local directory over WebDAV so the editor can be run without a separate
// WebDAV installation.
//
// - Optional basic auth (bcrypt password hash)
// - Prometheus metrics & structured logging (zap)
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/config"
	"github.com/crowdwave/reactoxide/internal/davserver"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
)

func main() {
	cfg, err := config.LoadDAV()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	if err := os.MkdirAll(cfg.RootPath, 0755); err != nil {
		logging.Fatal("cannot create dav root", zap.String("root", cfg.RootPath), zap.Error(err))
	}

	handler, err := davserver.NewHandler(davserver.Options{
		Root:         cfg.RootPath,
		Prefix:       cfg.Prefix,
		Username:     cfg.Username,
		PasswordHash: cfg.PasswordHash,
	})
	if err != nil {
		logging.Fatal("webdav handler failed", zap.Error(err))
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		}
		go func() {
			logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		httpServer.Close()
		if metricsServer != nil {
			metricsServer.Close()
		}
	}()

	logging.Info("webdav server listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("root", cfg.RootPath),
		zap.Bool("auth", cfg.PasswordHash != ""))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
	logging.Info("server stopped")
}
