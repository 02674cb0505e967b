package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-body")

func newImageHost(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tmp123.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	mux.HandleFunc("/gone.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestMaterializer(t *testing.T, store *LocalStore) (*Materializer, string) {
	t.Helper()
	staging := t.TempDir()
	return NewMaterializer(MaterializerConfig{StagingDir: staging, MaxImageBytes: 1024}, store, zap.NewNop()), staging
}

func TestMaterializer_MaterializeAndPublish(t *testing.T) {
	host := newImageHost(t)
	store, err := NewLocalStore(t.TempDir(), "https://storage.example/", zap.NewNop())
	require.NoError(t, err)
	m, staging := newTestMaterializer(t, store)

	asset, err := m.Materialize(context.Background(), host.URL+"/tmp123.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.ContentType)
	assert.Equal(t, int64(len(pngBytes)), asset.Size)
	assert.FileExists(t, asset.Path)

	url, err := m.Publish(context.Background(), asset)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "https://storage.example/mealImages/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	assert.NoFileExists(t, asset.Path, "staging file must be removed after publish")

	key := strings.TrimPrefix(url, "https://storage.example/")
	stored, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMaterializer_DownloadFailure(t *testing.T) {
	host := newImageHost(t)
	store, _ := NewLocalStore(t.TempDir(), "https://storage.example", zap.NewNop())
	m, staging := newTestMaterializer(t, store)

	_, err := m.Materialize(context.Background(), host.URL+"/gone.png")

	assert.ErrorIs(t, err, ErrDownloadFailed)
	entries, _ := os.ReadDir(staging)
	assert.Empty(t, entries)
}

func TestMaterializer_TooLarge(t *testing.T) {
	big := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer big.Close()
	store, _ := NewLocalStore(t.TempDir(), "https://storage.example", zap.NewNop())
	m, staging := newTestMaterializer(t, store)

	_, err := m.Materialize(context.Background(), big.URL)

	assert.ErrorIs(t, err, ErrImageTooLarge)
	entries, _ := os.ReadDir(staging)
	assert.Empty(t, entries)
}

func TestMaterializer_CancelledContext(t *testing.T) {
	host := newImageHost(t)
	store, _ := NewLocalStore(t.TempDir(), "https://storage.example", zap.NewNop())
	m, _ := newTestMaterializer(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Materialize(ctx, host.URL+"/tmp123.png")

	assert.Error(t, err)
}

type failingStore struct{}

func (failingStore) Upload(context.Context, string, []byte, string) error {
	return errors.New("bucket unavailable")
}

func (failingStore) PublicURL(context.Context, string) (string, error) {
	return "", nil
}

func TestMaterializer_PublishFailureRemovesStagedFile(t *testing.T) {
	host := newImageHost(t)
	m := NewMaterializer(MaterializerConfig{StagingDir: t.TempDir()}, failingStore{}, zap.NewNop())
	asset, err := m.Materialize(context.Background(), host.URL+"/tmp123.png")
	require.NoError(t, err)

	_, err = m.Publish(context.Background(), asset)

	assert.ErrorContains(t, err, "bucket unavailable")
	assert.NoFileExists(t, asset.Path)
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/media", zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, store.Upload(context.Background(), "../evil.png", []byte("x"), "image/png"))
	_, err = store.PublicURL(context.Background(), "/abs.png")
	assert.Error(t, err)

	url, err := store.PublicURL(context.Background(), "mealImages/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/media/mealImages/a.png", url)
}
