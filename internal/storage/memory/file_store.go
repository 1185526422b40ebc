// Package memory keeps uploaded files in-process for development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/linkboard/internal/links"
)

// FileStore stores uploads in-memory and returns pseudo descriptors.
type FileStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	files map[string]links.StoredFile
	seq   int
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{
		data:  make(map[string][]byte),
		files: make(map[string]links.StoredFile),
	}
}

// Store persists a copy of the content and returns its descriptor.
func (s *FileStore) Store(ctx context.Context, object links.UploadObject) (links.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return links.StoredFile{}, fmt.Errorf("store %q: %w", object.Name, err)
	}
	if object.Name == "" {
		return links.StoredFile{}, fmt.Errorf("name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("memory-%d", s.seq)
	file := links.StoredFile{
		ID:          id,
		Name:        object.Name,
		MimeType:    object.MimeType,
		WebViewLink: fmt.Sprintf("memory://%s", object.Name),
	}
	s.data[id] = append([]byte(nil), object.Data...)
	s.files[id] = file
	return file, nil
}

// Get returns the stored bytes and descriptor for id.
func (s *FileStore) Get(id string) ([]byte, links.StoredFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[id]
	if !ok {
		return nil, links.StoredFile{}, false
	}
	return append([]byte(nil), s.data[id]...), file, true
}

// Len returns the number of stored files.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
