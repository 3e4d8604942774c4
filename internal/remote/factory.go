package remote

import (
	"context"
	"fmt"

	"github.com/crowdwave/reactoxide/internal/config"
)

// NewFromConfig creates the Store selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Backend {
	case config.BackendWebDAV:
		return NewWebDAV(WebDAVConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  cfg.RequestTimeout,
		}), nil
	case config.BackendS3:
		s, err := NewS3(ctx, S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendLocal:
		l, err := NewLocal(cfg.RootPath)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend)
	}
}
