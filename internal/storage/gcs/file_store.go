// Package gcs stores uploads as Google Cloud Storage objects.
package gcs

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/linkboard/internal/links"
)

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// FileStore writes uploads to a configured GCS bucket.
type FileStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed file store.
func New(client *storage.Client, cfg Config) (*FileStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &FileStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Store uploads the object and returns a descriptor whose view link opens it
// in the Cloud console.
func (s *FileStore) Store(ctx context.Context, object links.UploadObject) (links.StoredFile, error) {
	if strings.TrimSpace(object.Name) == "" {
		return links.StoredFile{}, fmt.Errorf("name is required")
	}
	objectName := object.Name
	if s.prefix != "" {
		objectName = path.Join(s.prefix, object.Name)
	}
	writer := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if object.MimeType != "" {
		writer.ContentType = object.MimeType
	}
	if object.SHA256 != "" {
		writer.Metadata = map[string]string{"sha256": object.SHA256}
	}
	if _, err := writer.Write(object.Data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return links.StoredFile{}, fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return links.StoredFile{}, fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return links.StoredFile{}, fmt.Errorf("close writer: %w", err)
	}
	mimeType := object.MimeType
	if attrs := writer.Attrs(); attrs != nil {
		objectName = attrs.Name
		if attrs.ContentType != "" {
			mimeType = attrs.ContentType
		}
	}
	return links.StoredFile{
		ID:          objectName,
		Name:        object.Name,
		MimeType:    mimeType,
		WebViewLink: fmt.Sprintf("https://storage.cloud.google.com/%s/%s", s.bucket, objectName),
	}, nil
}
