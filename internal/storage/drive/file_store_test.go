package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/linkboard/internal/links"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *FileStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewService(context.Background(), Config{},
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	store, err := New(svc, Config{FolderID: "folder-123"})
	require.NoError(t, err)
	return store
}

func TestFileStoreStoreUploadsIntoFolder(t *testing.T) {
	t.Parallel()

	store := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/files"), r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "true", r.URL.Query().Get("supportsAllDrives"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "folder-123")
		assert.Contains(t, string(body), "notes_20260102030405.txt")
		assert.Contains(t, string(body), "hello drive")
		assert.Contains(t, string(body), `"sha256":"abc123"`)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "file-1",
			"name":        "notes_20260102030405.txt",
			"mimeType":    "text/plain",
			"webViewLink": "https://drive.google.com/file/d/file-1/view",
			"exportLinks": map[string]string{"application/pdf": "https://drive.google.com/export/pdf"},
		})
	})

	file, err := store.Store(context.Background(), links.UploadObject{
		Name:     "notes_20260102030405.txt",
		MimeType: "text/plain",
		Data:     []byte("hello drive"),
		SHA256:   "abc123",
	})
	require.NoError(t, err)
	require.Equal(t, "file-1", file.ID)
	require.Equal(t, "notes_20260102030405.txt", file.Name)
	require.Equal(t, "text/plain", file.MimeType)
	require.Equal(t, "https://drive.google.com/file/d/file-1/view", file.WebViewLink)
	require.Equal(t, "https://drive.google.com/export/pdf", file.ExportLinks["application/pdf"])
}

func TestFileStoreStorePropagatesAPIError(t *testing.T) {
	t.Parallel()

	store := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient permissions"}}`))
	})

	_, err := store.Store(context.Background(), links.UploadObject{Name: "a.txt", MimeType: "text/plain", Data: []byte("x")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "a.txt")
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{FolderID: "f"})
	require.Error(t, err)

	svc, err := NewService(context.Background(), Config{}, option.WithoutAuthentication())
	require.NoError(t, err)
	_, err = New(svc, Config{})
	require.Error(t, err)
}
