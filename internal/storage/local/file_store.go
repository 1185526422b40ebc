// Package local stores uploads on the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/linkboard/internal/links"
)

// Config captures the parameters for the local filesystem file store.
type Config struct {
	// BaseDir is the directory uploads are written into.
	BaseDir string
}

// FileStore writes uploads to the local filesystem.
type FileStore struct {
	baseDir string
}

// New creates a new local filesystem-backed file store, creating BaseDir when
// it is missing and verifying it is writable.
func New(cfg Config) (*FileStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &FileStore{baseDir: cfg.BaseDir}, nil
}

// Store writes the upload under BaseDir and returns a file:// descriptor.
func (s *FileStore) Store(_ context.Context, object links.UploadObject) (links.StoredFile, error) {
	if strings.TrimSpace(object.Name) == "" {
		return links.StoredFile{}, fmt.Errorf("name is required")
	}

	fullPath := filepath.Join(s.baseDir, object.Name)

	// Reject names that resolve outside baseDir.
	cleanBaseDir := filepath.Clean(s.baseDir)
	cleanFullPath := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFullPath, cleanBaseDir+string(filepath.Separator)) {
		return links.StoredFile{}, fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(cleanFullPath), 0o750); err != nil {
		return links.StoredFile{}, fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(cleanFullPath, object.Data, 0o600); err != nil {
		return links.StoredFile{}, fmt.Errorf("failed to write file: %w", err)
	}

	return links.StoredFile{
		ID:          object.Name,
		Name:        object.Name,
		MimeType:    object.MimeType,
		WebViewLink: fmt.Sprintf("file://%s", cleanFullPath),
	}, nil
}
