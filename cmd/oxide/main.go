// Oxide editor shell
//
// A terminal file tree and multi-tab editor over a remote file store.
//
// - WebDAV (default), S3 or local directory backends
// - Rename / new file / new folder / upload / delete
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/config"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/metrics"
	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/pkg/retry"
)

var (
	// Global flags
	backend     string
	remoteURL   string
	rootPath    string
	maxFileSize int64
	logLevel    string

	cfg *config.Config
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oxide",
		Short: "Terminal editor shell over a remote file store",
		Long: `Oxide browses and edits files on a WebDAV server, an S3 bucket or a local
directory. Settings come from OXIDE_* environment variables; flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Store backend: webdav, s3 or local (env OXIDE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "url", "", "WebDAV server URL (env OXIDE_URL)")
	rootCmd.PersistentFlags().StringVar(&rootPath, "root", "", "Directory for the local backend (env OXIDE_ROOT)")
	rootCmd.PersistentFlags().Int64Var(&maxFileSize, "max-file-size", 0, "Largest file to open or upload in bytes, 0 for no limit (env MAX_FILE_SIZE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	rootCmd.AddCommand(newTUICmd(), newLsCmd(), newUploadCmd())
	return rootCmd
}

// setup loads the configuration, applies flag overrides and starts logging. The TUI
// logs to LOG_FILE (or nowhere) so the screen is not corrupted.
func setup(cmd *cobra.Command) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.Backend = backend
	}
	if flags.Changed("url") {
		c.URL = remoteURL
	}
	if flags.Changed("root") {
		c.RootPath = rootPath
	}
	if flags.Changed("max-file-size") {
		c.MaxFileSize = maxFileSize
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg = c

	output := c.LogFile
	if output == "" {
		output = "stderr"
		if cmd.Name() == "tui" {
			output = os.DevNull
		}
	}
	if err := logging.Init(logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		OutputPath: output,
	}); err != nil {
		return fmt.Errorf("logging init error: %w", err)
	}

	if c.MetricsAddr != "" {
		go func() {
			logging.Info("metrics server listening", zap.String("addr", c.MetricsAddr))
			if err := http.ListenAndServe(c.MetricsAddr, metrics.Handler()); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}
	return nil
}

// openStore connects to the configured store. A WebDAV server is probed with backoff
// before the first real request.
func openStore(ctx context.Context) (remote.Store, error) {
	store, err := remote.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	if dav, ok := store.(*remote.WebDAV); ok {
		if err := dav.WaitOnline(ctx, retry.DefaultConfig()); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
		}
	}
	logging.Debug("store ready", zap.String("backend", cfg.Backend))
	return store, nil
}
