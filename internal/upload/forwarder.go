// Package upload buffers incoming files, stamps their names, and hands them to
// the configured storage backend.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkboard/internal/clock/system"
	"github.com/JakeFAU/linkboard/internal/hash/sha256"
	"github.com/JakeFAU/linkboard/internal/links"
	"github.com/JakeFAU/linkboard/internal/metrics"
)

// DefaultMimeType is used when the client did not declare a content type.
const DefaultMimeType = "application/octet-stream"

// DefaultMaxBytes bounds an upload when no limit is configured.
const DefaultMaxBytes int64 = 32 << 20

const stampLayout = "20060102150405"

var (
	// ErrNoFile means the request carried no "file" part.
	ErrNoFile = errors.New("no file uploaded")
	// ErrEmptyFilename means the "file" part had an empty filename.
	ErrEmptyFilename = errors.New("no selected file")
	// ErrTooLarge means the body exceeded the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrProvider wraps any failure reported by the storage backend.
	ErrProvider = errors.New("storage provider failed")
)

// Forwarder stores uploads through a links.FileStore.
type Forwarder struct {
	store    links.FileStore
	clock    links.Clock
	hasher   links.Hasher
	maxBytes int64
	logger   *zap.Logger
}

// Option customizes a Forwarder.
type Option func(*Forwarder)

// WithClock overrides the clock used for name stamping.
func WithClock(clock links.Clock) Option {
	return func(f *Forwarder) {
		if clock != nil {
			f.clock = clock
		}
	}
}

// WithHasher overrides the content digest.
func WithHasher(h links.Hasher) Option {
	return func(f *Forwarder) {
		if h != nil {
			f.hasher = h
		}
	}
}

// WithMaxBytes caps the buffered upload size.
func WithMaxBytes(n int64) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// New constructs a Forwarder.
func New(store links.FileStore, logger *zap.Logger, opts ...Option) (*Forwarder, error) {
	if store == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Forwarder{
		store:    store,
		clock:    system.New(),
		hasher:   sha256.New(),
		maxBytes: DefaultMaxBytes,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// MaxBytes reports the configured size limit.
func (f *Forwarder) MaxBytes() int64 {
	return f.maxBytes
}

// Upload buffers body, renames it with a UTC timestamp, and stores it.
func (f *Forwarder) Upload(ctx context.Context, fileName, mimeType string, body io.Reader) (links.StoredFile, error) {
	if body == nil {
		metrics.ObserveUpload("rejected")
		return links.StoredFile{}, ErrNoFile
	}
	if fileName == "" {
		metrics.ObserveUpload("rejected")
		return links.StoredFile{}, ErrEmptyFilename
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		metrics.ObserveUpload("rejected")
		return links.StoredFile{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		metrics.ObserveUpload("rejected")
		return links.StoredFile{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, f.maxBytes)
	}
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	digest, err := f.hasher.Hash(data)
	if err != nil {
		metrics.ObserveUpload("error")
		return links.StoredFile{}, fmt.Errorf("hash upload: %w", err)
	}

	object := links.UploadObject{
		Name:     StampName(fileName, f.clock.Now()),
		MimeType: mimeType,
		Data:     data,
		SHA256:   digest,
	}
	stored, err := f.store.Store(ctx, object)
	if err != nil {
		metrics.ObserveUpload("error")
		f.logger.Error("upload failed",
			zap.String("name", object.Name),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return links.StoredFile{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	metrics.ObserveUpload("success")
	f.logger.Info("upload stored",
		zap.String("name", object.Name),
		zap.String("id", stored.ID),
		zap.String("sha256", digest),
		zap.Int("bytes", len(data)),
	)
	return stored, nil
}

// StampName inserts "_YYYYMMDDHHMMSS" (UTC) between the stem and extension.
// A leading-dot name such as ".env" is treated as all stem.
func StampName(name string, t time.Time) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	return fmt.Sprintf("%s_%s%s", stem, t.UTC().Format(stampLayout), ext)
}
