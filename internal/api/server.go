package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkboard/internal/links"
	"github.com/JakeFAU/linkboard/internal/metrics"
)

const defaultRequestTimeout = 60 * time.Second

// Directory is the shared link index and selection state.
type Directory interface {
	Refresh(ctx context.Context) (links.Index, error)
	CurrentIndex() links.Index
	ValidURLCount() int
	Select(ctx context.Context, url string) error
	CurrentSelection() (string, bool)
	ClearSelection(ctx context.Context)
}

// Uploader forwards one buffered file to storage.
type Uploader interface {
	Upload(ctx context.Context, fileName, mimeType string, body io.Reader) (links.StoredFile, error)
	MaxBytes() int64
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// Uploader backs POST /upload. Nil leaves the route unmounted.
	Uploader Uploader
	// History backs GET /history/latest. Nil answers 503.
	History links.HistoryStore
	// RequestTimeout bounds every handler. Zero means 60s.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the directory and upload forwarder.
type Server struct {
	router    chi.Router
	directory Directory
	uploader  Uploader
	history   *HistoryHandler
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(directory Directory, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	s := &Server{
		directory: directory,
		uploader:  opts.Uploader,
		history:   NewHistoryHandler(opts.History, logger),
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/", s.getIndex)
	r.Get("/refresh", s.refresh)
	r.Get("/set_url/*", s.setURL)
	r.Get("/get_url", s.getURL)
	r.Get("/empty", s.empty)
	if s.uploader != nil {
		r.Post("/upload", s.upload)
	}
	r.Get("/history/latest", s.history.Latest)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	idx := s.directory.CurrentIndex()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"tags":       len(idx),
		"entries":    idx.EntryCount(),
		"valid_urls": s.directory.ValidURLCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
