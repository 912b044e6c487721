// Package asset turns uploaded image payloads into fixed-size thumbnails kept in the asset store.
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"catalogapi/internal/model"
	"catalogapi/internal/storage"
)

const (
	// ThumbnailWidth and ThumbnailHeight are the fixed dimensions of every stored image.
	ThumbnailWidth  = 200
	ThumbnailHeight = 200

	// maxNameAttempts bounds the search for an unused timestamp filename.
	maxNameAttempts = 60
)

var (
	// ErrDecode is returned when a payload is not a recognizable encoded image.
	ErrDecode = errors.New("image payload could not be decoded")
	// ErrUnsupportedFormat is returned when the payload's mime subtype is not an allowed image extension.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var tracer = otel.Tracer("catalogapi/internal/asset")

// Manager stores product images and removes the ones that are no longer referenced.
type Manager interface {
	// Store decodes payload, resizes it to the thumbnail size and writes it under a
	// generated "<unix-seconds>.<ext>" filename, which is returned. If that name is
	// taken the timestamp is advanced until a free one is found.
	Store(ctx context.Context, payload string) (string, error)

	// RemoveBestEffort deletes filename from the asset store. The default image is never
	// deleted and a missing file counts as removed. Failures are logged and reported
	// through the return value only.
	RemoveBestEffort(ctx context.Context, filename string) bool

	// Open streams a stored image.
	Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error)
}

type imageManager struct {
	store          storage.Storage
	logger         *zap.Logger
	now            func() time.Time
	removeFailures prometheus.Counter
}

// Option customizes a Manager.
type Option func(*imageManager)

// WithClock replaces the clock used to generate filenames.
func WithClock(now func() time.Time) Option {
	return func(m *imageManager) { m.now = now }
}

// WithLogger sets the logger used for best-effort removal failures.
func WithLogger(l *zap.Logger) Option {
	return func(m *imageManager) { m.logger = l }
}

// WithRegisterer registers the removal failure counter on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *imageManager) { reg.MustRegister(m.removeFailures) }
}

// NewManager constructs a Manager writing to store.
func NewManager(store storage.Storage, opts ...Option) Manager {
	m := &imageManager{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		removeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_asset_removal_failures_total",
			Help: "Image files that could not be removed from the asset store.",
		}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *imageManager) Store(ctx context.Context, raw string) (string, error) {
	ctx, span := tracer.Start(ctx, "asset.Store")
	defer span.End()

	p, err := parsePayload(raw)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	src, _, err := image.Decode(bytes.NewReader(p.data))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := encode(&buf, dst, p.ext); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	name, err := m.freeName(ctx, m.now().Unix(), p.ext)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(
		attribute.String("asset.filename", name),
		attribute.Int("asset.size", buf.Len()),
	)

	if _, err := m.store.Put(ctx, name, &buf, storage.PutObjectOptions{
		Size:        int64(buf.Len()),
		ContentType: p.contentType,
	}); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("write image %s: %w", name, err)
	}
	return name, nil
}

// freeName returns "<ts>.<ext>", moving ts forward while the name is taken so that
// two uploads within the same second never overwrite each other.
func (m *imageManager) freeName(ctx context.Context, ts int64, ext string) (string, error) {
	for i := int64(0); i < maxNameAttempts; i++ {
		name := strconv.FormatInt(ts+i, 10) + "." + ext
		exists, err := m.store.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check image name %s: %w", name, err)
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free image name after %d attempts", maxNameAttempts)
}

func (m *imageManager) RemoveBestEffort(ctx context.Context, filename string) bool {
	if filename == "" || filename == model.DefaultImage {
		return true
	}

	exists, err := m.store.Exists(ctx, filename)
	if err != nil {
		m.removeFailed(filename, err)
		return false
	}
	if !exists {
		return true
	}
	if err := m.store.Delete(ctx, filename); err != nil {
		m.removeFailed(filename, err)
		return false
	}
	return true
}

func (m *imageManager) removeFailed(filename string, err error) {
	m.removeFailures.Inc()
	m.logger.Warn("image removal failed", zap.String("filename", filename), zap.Error(err))
}

func (m *imageManager) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	return m.store.Get(ctx, filename)
}

func encode(w io.Writer, img image.Image, ext string) error {
	switch ext {
	case "png":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case "gif":
		return gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
