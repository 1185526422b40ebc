// Package drive forwards uploads to a Google Drive folder.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JakeFAU/linkboard/internal/links"
)

// Config captures the Drive destination and credentials.
type Config struct {
	FolderID        string
	CredentialsFile string
	CredentialsJSON string
}

var responseFields = []googleapi.Field{"id", "name", "mimeType", "webViewLink", "exportLinks"}

// NewService builds a Drive client from the configured service-account
// credentials. Extra options are appended after the credential options.
func NewService(ctx context.Context, cfg Config, opts ...option.ClientOption) (*drive.Service, error) {
	clientOpts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// FileStore uploads files into a single Drive folder.
type FileStore struct {
	files    *drive.FilesService
	folderID string
}

// New creates a Drive-backed file store.
func New(svc *drive.Service, cfg Config) (*FileStore, error) {
	if svc == nil {
		return nil, fmt.Errorf("drive service is required")
	}
	if strings.TrimSpace(cfg.FolderID) == "" {
		return nil, fmt.Errorf("folder id is required")
	}
	return &FileStore{files: svc.Files, folderID: cfg.FolderID}, nil
}

// Store creates the file in the configured folder and returns Drive's
// descriptor for it.
func (s *FileStore) Store(ctx context.Context, object links.UploadObject) (links.StoredFile, error) {
	meta := &drive.File{
		Name:     object.Name,
		MimeType: object.MimeType,
		Parents:  []string{s.folderID},
	}
	if object.SHA256 != "" {
		meta.AppProperties = map[string]string{"sha256": object.SHA256}
	}
	created, err := s.files.Create(meta).
		Media(bytes.NewReader(object.Data), googleapi.ContentType(object.MimeType)).
		Fields(responseFields...).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return links.StoredFile{}, fmt.Errorf("drive files.create %q: %w", object.Name, err)
	}
	return links.StoredFile{
		ID:          created.Id,
		Name:        created.Name,
		MimeType:    created.MimeType,
		WebViewLink: created.WebViewLink,
		ExportLinks: created.ExportLinks,
	}, nil
}
