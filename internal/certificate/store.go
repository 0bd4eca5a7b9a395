package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists rendered certificates and returns their public URL.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// DiskStore writes certificates under a local directory served by the
// HTTP server at the configured public base URL.
type DiskStore struct {
	dir           string
	publicBaseURL string
	logger        *slog.Logger
}

func NewDiskStore(dir, publicBaseURL string, logger *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	logger.Debug("Certificate disk store ready", "dir", dir, "public_base_url", publicBaseURL)

	return &DiskStore{
		dir:           dir,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}, nil
}

func (s *DiskStore) Put(_ context.Context, name string, data []byte) (string, error) {
	logger := s.logger.With("component", "certificate_store", "operation", "put", "name", name)

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error("Failed to write certificate file", "error", err)
		return "", fmt.Errorf("failed to write certificate file: %w", err)
	}

	url := s.publicBaseURL + "/" + name
	logger.Info("Certificate stored", "path", path, "url", url, "size_bytes", len(data))
	return url, nil
}

var _ Store = (*DiskStore)(nil)
