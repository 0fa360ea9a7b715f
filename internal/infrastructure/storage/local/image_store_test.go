package local

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var fixedTime = time.Date(2024, 3, 5, 14, 7, 9, 123_000_000, time.UTC)

func pngBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, []byte("\x89PNG\r\n\x1a\n"))
	return b
}

func jpegBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return b
}

func newTestStore(t *testing.T, mutate func(*config.UploadConfig)) (*ImageStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	cfg := &config.UploadConfig{
		Dir:          dir,
		MaxBytes:     1024,
		AllowedTypes: []string{"image/jpeg", "image/png"},
		SniffContent: true,
	}
	if mutate != nil {
		mutate(cfg)
	}

	store, err := NewImageStore(cfg,
		tracenoop.NewTracerProvider().Tracer("test"),
		metricnoop.NewMeterProvider().Meter("test"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return fixedTime }),
	)
	require.NoError(t, err)
	return store, dir
}

func incoming(name, contentType string, content []byte) *domain.IncomingImage {
	return &domain.IncomingImage{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Content:     bytes.NewReader(content),
	}
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestImageStore_AcceptsPNG(t *testing.T) {
	store, dir := newTestStore(t, nil)
	content := pngBytes(800)

	result, err := store.Accept(context.Background(), incoming("widget.png", "image/png", content))
	require.NoError(t, err)
	require.True(t, result.Accepted())

	img := result.Image
	assert.Equal(t, "2024-03-05T14-07-09.123Zwidget.png", img.Name)
	assert.Equal(t, filepath.Join(dir, img.Name), img.Path)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, int64(800), img.Size)
	assert.Equal(t, int64(1024), store.MaxBytes())

	stored, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestImageStore_AcceptsJPEGWithParams(t *testing.T) {
	store, _ := newTestStore(t, nil)

	result, err := store.Accept(context.Background(), incoming("a.jpg", "Image/JPEG; charset=binary", jpegBytes(100)))
	require.NoError(t, err)
	require.True(t, result.Accepted())
	assert.Equal(t, "image/jpeg", result.Image.ContentType)
}

func TestImageStore_RejectsDisallowedType(t *testing.T) {
	store, dir := newTestStore(t, nil)

	result, err := store.Accept(context.Background(), incoming("notes.txt", "text/plain", []byte("hello")))
	require.NoError(t, err, "rejection is not an error")
	assert.False(t, result.Accepted())
	assert.Contains(t, result.RejectReason, "text/plain")
	assert.Empty(t, dirEntries(t, dir))
}

func TestImageStore_RejectsMissingFile(t *testing.T) {
	store, _ := newTestStore(t, nil)

	result, err := store.Accept(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.Accepted())
	assert.NotEmpty(t, result.RejectReason)
}

func TestImageStore_RejectsSpoofedContent(t *testing.T) {
	store, dir := newTestStore(t, nil)

	result, err := store.Accept(context.Background(), incoming("evil.png", "image/png", []byte("<?php echo 1; ?>")))
	require.NoError(t, err)
	assert.False(t, result.Accepted())
	assert.Contains(t, result.RejectReason, "declared as image/png")
	assert.Empty(t, dirEntries(t, dir))
}

func TestImageStore_SniffingDisabled(t *testing.T) {
	store, _ := newTestStore(t, func(c *config.UploadConfig) { c.SniffContent = false })

	result, err := store.Accept(context.Background(), incoming("plain.png", "image/png", []byte("not really a png")))
	require.NoError(t, err)
	assert.True(t, result.Accepted())
}

func TestImageStore_DeclaredSizeTooLarge(t *testing.T) {
	store, dir := newTestStore(t, nil)

	_, err := store.Accept(context.Background(), incoming("big.png", "image/png", pngBytes(1025)))
	assert.ErrorIs(t, err, domain.ErrImageTooLarge)
	assert.Empty(t, dirEntries(t, dir))
}

func TestImageStore_ActualSizeTooLarge(t *testing.T) {
	store, dir := newTestStore(t, nil)

	img := incoming("liar.png", "image/png", pngBytes(4096))
	img.Size = 10

	_, err := store.Accept(context.Background(), img)
	assert.ErrorIs(t, err, domain.ErrImageTooLarge)
	assert.Empty(t, dirEntries(t, dir), "partial file must be removed")
}

func TestImageStore_ExactlyAtLimit(t *testing.T) {
	store, _ := newTestStore(t, nil)

	result, err := store.Accept(context.Background(), incoming("edge.png", "image/png", pngBytes(1024)))
	require.NoError(t, err)
	assert.True(t, result.Accepted())
}

func TestImageStore_StripsDirectoriesFromFilename(t *testing.T) {
	store, dir := newTestStore(t, nil)

	result, err := store.Accept(context.Background(), incoming(`..\..\etc/passwd.png`, "image/png", pngBytes(64)))
	require.NoError(t, err)
	require.True(t, result.Accepted())

	assert.Equal(t, dir, filepath.Dir(result.Image.Path))
	assert.True(t, strings.HasSuffix(result.Image.Name, "passwd.png"))
}

func TestImageStore_SameNameGetsDistinctFiles(t *testing.T) {
	store, dir := newTestStore(t, nil)
	ctx := context.Background()

	first := pngBytes(64)
	result, err := store.Accept(ctx, incoming("same.png", "image/png", first))
	require.NoError(t, err)
	require.True(t, result.Accepted())

	again, err := store.Accept(ctx, incoming("same.png", "image/png", pngBytes(128)))
	require.NoError(t, err)
	require.True(t, again.Accepted())

	assert.NotEqual(t, result.Image.Path, again.Image.Path)
	assert.True(t, strings.HasPrefix(again.Image.Name, "2024-03-05T14-07-09.123Z"))
	assert.True(t, strings.HasSuffix(again.Image.Name, "-same.png"))
	assert.Len(t, dirEntries(t, dir), 2)

	stored, err := os.ReadFile(result.Image.Path)
	require.NoError(t, err)
	assert.Equal(t, first, stored, "an existing file is never overwritten")
}

func TestImageStore_ConcurrentSameName(t *testing.T) {
	store, dir := newTestStore(t, nil)

	const uploads = 20
	var wg sync.WaitGroup
	results := make([]domain.UploadResult, uploads)
	errs := make([]error, uploads)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Accept(context.Background(), incoming("photo.png", "image/png", pngBytes(64)))
		}(i)
	}
	wg.Wait()

	paths := map[string]struct{}{}
	for i := range results {
		require.NoError(t, errs[i])
		require.True(t, results[i].Accepted())
		paths[results[i].Image.Path] = struct{}{}
	}
	assert.Len(t, paths, uploads)
	assert.Len(t, dirEntries(t, dir), uploads)
}

func TestImageStore_BoundsLongFileNames(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()
	long := strings.Repeat("a", 250) + ".png"

	for i := 0; i < 2; i++ {
		result, err := store.Accept(ctx, incoming(long, "image/png", pngBytes(64)))
		require.NoError(t, err)
		require.True(t, result.Accepted())

		assert.LessOrEqual(t, len(result.Image.Name), maxNameBytes)
		assert.True(t, strings.HasPrefix(result.Image.Name, "2024-03-05T14-07-09.123Z"))
		assert.True(t, strings.HasSuffix(result.Image.Name, "aaa.png"))
	}
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"fits", "photo.png", 20, "photo.png"},
		{"keeps extension", "photograph.png", 9, "photo.png"},
		{"long extension dropped", "a." + strings.Repeat("x", 10), 6, "a.xxxx"},
		{"rune boundary", "ééé.png", 9, "éé.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateName(tt.in, tt.limit))
		})
	}
}

func TestImageStore_Remove(t *testing.T) {
	store, dir := newTestStore(t, nil)
	ctx := context.Background()

	result, err := store.Accept(ctx, incoming("gone.png", "image/png", pngBytes(64)))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, result.Image.Path))
	assert.Empty(t, dirEntries(t, dir))

	assert.NoError(t, store.Remove(ctx, result.Image.Path), "removing twice is not an error")
}

func TestImageStore_FileNameFallback(t *testing.T) {
	store, _ := newTestStore(t, nil)
	assert.Equal(t, "2024-03-05T14-07-09.123Zupload", store.fileName("", ""))
}
