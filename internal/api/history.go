package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkboard/internal/links"
)

const historyTimeout = 3 * time.Second

// HistoryHandler exposes the persisted refresh history.
type HistoryHandler struct {
	repo    links.HistoryStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewHistoryHandler wires the history store and logger.
func NewHistoryHandler(repo links.HistoryStore, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{
		repo:    repo,
		timeout: historyTimeout,
		logger:  logger,
	}
}

type snapshotDTO struct {
	ID          string    `json:"id"`
	RefreshedAt time.Time `json:"refreshed_at"`
	TagCount    int       `json:"tag_count"`
	EntryCount  int       `json:"entry_count"`
	Tags        []string  `json:"tags"`
}

// Latest handles GET /history/latest. It returns {"snapshot": {...}} on
// success, 404 when nothing was recorded yet, 503 when history is disabled,
// or 500 if the store fails.
func (h *HistoryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeMessage(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, ok, err := h.repo.LatestSnapshot(ctx)
	if err != nil {
		h.logger.Error("load latest snapshot failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "no refresh recorded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snapshotDTO{
			ID:          snap.ID,
			RefreshedAt: snap.RefreshedAt,
			TagCount:    snap.TagCount,
			EntryCount:  snap.EntryCount,
			Tags:        snap.Index.Tags(),
		},
	})
}
