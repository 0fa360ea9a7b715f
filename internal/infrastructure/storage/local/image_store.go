package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// sniffLen is how much of the file is inspected to detect its real type
	sniffLen = 3072

	// maxNameBytes is the usual filesystem limit for a single path element
	maxNameBytes = 255

	// maxNameAttempts bounds the retries when a generated name is taken
	maxNameAttempts = 5
)

// ImageStore accepts product images into a local directory
type ImageStore struct {
	dir      string
	maxBytes int64
	allowed  map[string]struct{}
	sniff    bool
	now      func() time.Time

	tracer      trace.Tracer
	logger      *slog.Logger
	uploads     metric.Int64Counter
	uploadBytes metric.Int64Histogram
}

// Option customizes an ImageStore
type Option func(*ImageStore)

// WithClock overrides the clock used to name stored files
func WithClock(now func() time.Time) Option {
	return func(s *ImageStore) {
		s.now = now
	}
}

// NewImageStore creates the upload directory if needed and returns a store
// enforcing cfg's size and type policy.
func NewImageStore(
	cfg *config.UploadConfig,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
	opts ...Option,
) (*ImageStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", cfg.Dir, err)
	}

	uploads, _ := meter.Int64Counter(
		"uploads.total",
		metric.WithDescription("Total number of product image uploads by outcome"),
	)
	uploadBytes, _ := meter.Int64Histogram(
		"uploads.size",
		metric.WithDescription("Size of accepted product images"),
		metric.WithUnit("By"),
	)

	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[normalizeType(t)] = struct{}{}
	}

	s := &ImageStore{
		dir:         cfg.Dir,
		maxBytes:    cfg.MaxBytes,
		allowed:     allowed,
		sniff:       cfg.SniffContent,
		now:         time.Now,
		tracer:      tracer,
		logger:      logger,
		uploads:     uploads,
		uploadBytes: uploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// MaxBytes returns the per-file size ceiling
func (s *ImageStore) MaxBytes() int64 {
	return s.maxBytes
}

// Accept stores image if its declared type is allowed and it fits the size
// ceiling. Disallowed or mismatching content is rejected without error.
func (s *ImageStore) Accept(ctx context.Context, image *domain.IncomingImage) (domain.UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImageStore.Accept")
	defer span.End()

	if image == nil {
		return s.reject(ctx, span, "no file provided"), nil
	}

	contentType := normalizeType(image.ContentType)
	span.SetAttributes(
		attribute.String("upload.filename", image.Filename),
		attribute.String("upload.content_type", contentType),
		attribute.Int64("upload.declared_size", image.Size),
	)

	if _, ok := s.allowed[contentType]; !ok {
		return s.reject(ctx, span, fmt.Sprintf("content type %q is not accepted", image.ContentType)), nil
	}

	if image.Size > s.maxBytes {
		return domain.UploadResult{}, s.tooLarge(ctx, span, image.Size)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(image.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.UploadResult{}, s.fail(ctx, span, "read upload", err)
	}
	head = head[:n]

	if s.sniff {
		if detected := mimetype.Detect(head); !detected.Is(contentType) {
			return s.reject(ctx, span, fmt.Sprintf("content is %s, declared as %s", detected.String(), contentType)), nil
		}
	}

	f, name, err := s.openUnique(image.Filename)
	if err != nil {
		return domain.UploadResult{}, s.fail(ctx, span, "create upload file", err)
	}
	path := filepath.Join(s.dir, name)

	content := io.MultiReader(bytes.NewReader(head), image.Content)
	written, copyErr := io.Copy(f, io.LimitReader(content, s.maxBytes+1))
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return domain.UploadResult{}, s.fail(ctx, span, "write upload file", errors.Join(copyErr, closeErr))
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return domain.UploadResult{}, s.tooLarge(ctx, span, written)
	}

	stored := &domain.StoredImage{
		Name:        name,
		Path:        path,
		ContentType: contentType,
		Size:        written,
	}

	span.SetAttributes(attribute.String("upload.path", path))
	s.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "accepted")))
	s.uploadBytes.Record(ctx, written)

	s.logger.InfoContext(ctx, "Product image stored",
		slog.String("path", path),
		slog.String("content_type", contentType),
		slog.Int64("size", written),
	)

	span.SetStatus(codes.Ok, "Upload accepted")
	return domain.UploadResult{Image: stored}, nil
}

// Remove deletes a previously stored image. A missing file is not an error.
func (s *ImageStore) Remove(ctx context.Context, path string) error {
	ctx, span := s.tracer.Start(ctx, "ImageStore.Remove")
	defer span.End()

	span.SetAttributes(attribute.String("upload.path", path))

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return s.fail(ctx, span, "remove upload file", err)
	}

	s.logger.InfoContext(ctx, "Product image removed", slog.String("path", path))
	return nil
}

// openUnique creates a new file for original without ever replacing an
// existing one. A taken name gets a short random tag after the timestamp.
func (s *ImageStore) openUnique(original string) (*os.File, string, error) {
	tag := ""
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := s.fileName(original, tag)
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		tag = uuid.NewString()[:8]
	}
	return nil, "", fmt.Errorf("no free file name for %q after %d attempts", original, maxNameAttempts)
}

// fileName prefixes the original base name with an ISO-8601 UTC timestamp
// whose colons are replaced by hyphens, and tag when set. The base name is
// shortened so the result fits in maxNameBytes.
func (s *ImageStore) fileName(original, tag string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}

	prefix := strings.ReplaceAll(s.now().UTC().Format("2006-01-02T15:04:05.000Z"), ":", "-")
	if tag != "" {
		prefix += tag + "-"
	}
	return prefix + truncateName(base, maxNameBytes-len(prefix))
}

// truncateName cuts name to at most limit bytes, keeping its extension and
// valid UTF-8.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if len(ext) >= limit {
		stem, ext = name, ""
	}

	n := limit - len(ext)
	for n > 0 && !utf8.RuneStart(stem[n]) {
		n--
	}
	if n == 0 && ext == "" {
		return "upload"
	}
	return stem[:n] + ext
}

func (s *ImageStore) reject(ctx context.Context, span trace.Span, reason string) domain.UploadResult {
	span.SetAttributes(attribute.String("upload.reject_reason", reason))
	span.SetStatus(codes.Ok, "Upload rejected")
	s.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "rejected")))
	s.logger.WarnContext(ctx, "Product image rejected", slog.String("reason", reason))
	return domain.UploadResult{RejectReason: reason}
}

func (s *ImageStore) tooLarge(ctx context.Context, span trace.Span, size int64) error {
	span.SetStatus(codes.Error, "Upload too large")
	s.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "too_large")))
	s.logger.WarnContext(ctx, "Product image exceeds size limit",
		slog.Int64("size", size),
		slog.Int64("max_bytes", s.maxBytes),
	)
	return fmt.Errorf("%w: limit is %d bytes", domain.ErrImageTooLarge, s.maxBytes)
}

func (s *ImageStore) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "Failed to "+op)
	s.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failure")))
	s.logger.ErrorContext(ctx, "Upload storage failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeType(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
