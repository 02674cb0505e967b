// Package storage moves generated meal images into durable object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omq/mealsync/internal/ports/outbound"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	ErrDownloadFailed = errors.New("image download failed")
	ErrImageTooLarge  = errors.New("image exceeds size limit")
	ErrNoPublicURL    = errors.New("storage returned no public URL")
)

// MaterializerConfig holds download and key layout settings
type MaterializerConfig struct {
	StagingDir      string
	KeyPrefix       string
	MaxImageBytes   int64
	DownloadTimeout time.Duration
}

// Materializer implements outbound.AssetMaterializer on top of an ObjectStore
type Materializer struct {
	cfg    MaterializerConfig
	http   *http.Client
	store  outbound.ObjectStore
	logger *zap.Logger
}

// NewMaterializer creates a materializer that publishes into store
func NewMaterializer(cfg MaterializerConfig, store outbound.ObjectStore, logger *zap.Logger) *Materializer {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "mealImages"
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 20 << 20
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}
	return &Materializer{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.DownloadTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store:  store,
		logger: logger.Named("materializer"),
	}
}

// Materialize downloads remoteURL into a staging file
func (m *Materializer) Materialize(ctx context.Context, remoteURL string) (*outbound.StagedAsset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	f, err := os.CreateTemp(m.cfg.StagingDir, "meal-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(resp.Body, m.cfg.MaxImageBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("%w: %v", ErrDownloadFailed, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to write staging file: %w", closeErr)
	case n > m.cfg.MaxImageBytes:
		err = ErrImageTooLarge
	case n == 0:
		err = fmt.Errorf("%w: empty body", ErrDownloadFailed)
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/png"
	}

	m.logger.Debug("Image staged", zap.String("path", f.Name()), zap.Int64("bytes", n))

	return &outbound.StagedAsset{
		Path:        f.Name(),
		ContentType: contentType,
		Size:        n,
		SourceURL:   remoteURL,
	}, nil
}

// Publish uploads the staged file under <prefix>/<uuid>.png and resolves its public URL
func (m *Materializer) Publish(ctx context.Context, asset *outbound.StagedAsset) (string, error) {
	defer m.Discard(asset)

	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read staged image: %w", err)
	}

	key := path.Join(m.cfg.KeyPrefix, uuid.NewString()+".png")
	if err := m.store.Upload(ctx, key, data, asset.ContentType); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	publicURL, err := m.store.PublicURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve URL for %s: %w", key, err)
	}
	if publicURL == "" {
		return "", ErrNoPublicURL
	}

	m.logger.Info("Image published", zap.String("key", key), zap.Int64("bytes", asset.Size))
	return publicURL, nil
}

// Discard removes the staging file
func (m *Materializer) Discard(asset *outbound.StagedAsset) {
	if asset == nil || asset.Path == "" {
		return
	}
	if err := os.Remove(asset.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("Failed to remove staged image", zap.String("path", asset.Path), zap.Error(err))
	}
}
