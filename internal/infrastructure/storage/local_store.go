package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStore implements outbound.ObjectStore on a directory served under BaseURL.
// It is meant for development and tests.
type LocalStore struct {
	root    string
	baseURL string
	logger  *zap.Logger
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root, baseURL string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("local-store"),
	}, nil
}

// Root returns the directory objects are written to
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	s.logger.Debug("Object written", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *LocalStore) PublicURL(_ context.Context, key string) (string, error) {
	if _, err := s.pathFor(key); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
