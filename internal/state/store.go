// Package state owns the process-wide link index, the set of selectable URLs,
// and the current selection.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/linkboard/internal/clock/system"
	"github.com/JakeFAU/linkboard/internal/links"
	"github.com/JakeFAU/linkboard/internal/metrics"
)

// ErrInvalidURL is returned when a selection target was never seen in a refresh.
var ErrInvalidURL = errors.New("URL not valid")

// Config carries the optional collaborators of a Store.
type Config struct {
	// History records each successful refresh. Nil disables persistence.
	History links.HistoryStore
	// Publisher receives selection events. Nil disables publishing.
	Publisher links.Publisher
	Clock     links.Clock
	IDs       links.IDGenerator
}

// Store guards the index, the valid URL set, and the selection with a single
// RWMutex. Upstream fetches run outside the lock; only the swap is locked.
//
// The valid URL set only grows: URLs dropped upstream stay selectable.
type Store struct {
	fetcher   links.Fetcher
	history   links.HistoryStore
	publisher links.Publisher
	clock     links.Clock
	ids       links.IDGenerator
	logger    *zap.Logger
	refreshes singleflight.Group

	mu        sync.RWMutex
	index     links.Index
	valid     map[string]struct{}
	selection string
	selected  bool
}

// New builds an empty Store.
func New(fetcher links.Fetcher, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = system.New()
	}
	return &Store{
		fetcher:   fetcher,
		history:   cfg.History,
		publisher: cfg.Publisher,
		clock:     clock,
		ids:       cfg.IDs,
		logger:    logger,
		index:     links.Index{},
		valid:     make(map[string]struct{}),
	}
}

// Refresh fetches and normalizes every record, then replaces the index. On
// failure the previous index and URL set are left untouched. Concurrent calls
// share one upstream fetch, which is detached from any single caller's
// cancellation and bounded by the fetcher's own timeout.
func (s *Store) Refresh(ctx context.Context) (links.Index, error) {
	shared := context.WithoutCancel(ctx)
	v, err, joined := s.refreshes.Do("refresh", func() (any, error) {
		return s.refresh(shared)
	})
	if err != nil {
		return nil, err
	}
	if joined {
		s.logger.Debug("refresh result shared with concurrent caller")
	}
	index, ok := v.(links.Index)
	if !ok {
		return nil, fmt.Errorf("unexpected refresh result %T", v)
	}
	return index, nil
}

func (s *Store) refresh(ctx context.Context) (links.Index, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}
	start := time.Now()
	records, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		metrics.ObserveRefresh("error", time.Since(start))
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	index, urls := links.Normalize(records)

	s.mu.Lock()
	s.index = index
	for _, u := range urls {
		s.valid[u] = struct{}{}
	}
	validCount := len(s.valid)
	s.mu.Unlock()

	metrics.ObserveRefresh("ok", time.Since(start))
	metrics.SetIndexSize(len(index), index.EntryCount())
	metrics.SetValidURLs(validCount)
	s.logger.Info("index refreshed",
		zap.Int("records", len(records)),
		zap.Int("tags", len(index)),
		zap.Int("valid_urls", validCount),
		zap.Duration("duration", time.Since(start)),
	)

	s.recordSnapshot(ctx, index)
	return index, nil
}

func (s *Store) recordSnapshot(ctx context.Context, index links.Index) {
	if s.history == nil {
		return
	}
	snapshot := links.Snapshot{
		RefreshedAt: s.clock.Now(),
		TagCount:    len(index),
		EntryCount:  index.EntryCount(),
		Index:       index,
	}
	if s.ids != nil {
		id, err := s.ids.NewID()
		if err != nil {
			s.logger.Warn("snapshot id generation failed", zap.Error(err))
			return
		}
		snapshot.ID = id
	}
	if err := s.history.RecordSnapshot(ctx, snapshot); err != nil {
		s.logger.Warn("record snapshot failed", zap.Error(err))
	}
}

// Seed installs a previously persisted index, for example at startup. Its
// URLs are merged into the valid set.
func (s *Store) Seed(index links.Index) {
	if index == nil {
		index = links.Index{}
	}
	s.mu.Lock()
	s.index = index
	for _, u := range index.URLs() {
		s.valid[u] = struct{}{}
	}
	validCount := len(s.valid)
	s.mu.Unlock()

	metrics.SetIndexSize(len(index), index.EntryCount())
	metrics.SetValidURLs(validCount)
}

// CurrentIndex returns the last stored index, or an empty one.
func (s *Store) CurrentIndex() links.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// ValidURLCount returns the number of selectable URLs.
func (s *Store) ValidURLCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.valid)
}

// isValid reports whether url has appeared in any refresh.
func (s *Store) isValid(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.valid[url]
	return ok
}

// Select makes url the current selection. It fails with ErrInvalidURL, leaving
// the selection unchanged, when url was never seen.
func (s *Store) Select(ctx context.Context, url string) error {
	s.mu.Lock()
	if _, ok := s.valid[url]; !ok {
		s.mu.Unlock()
		metrics.ObserveSelection(string(links.SelectionSet), "rejected")
		return fmt.Errorf("select %q: %w", url, ErrInvalidURL)
	}
	s.selection = url
	s.selected = true
	s.mu.Unlock()

	metrics.ObserveSelection(string(links.SelectionSet), "ok")
	s.logger.Info("selection set", zap.String("url", url))
	s.publish(ctx, links.SelectionEvent{Action: links.SelectionSet, URL: url, At: s.clock.Now()})
	return nil
}

// CurrentSelection returns the selected URL and whether one is set.
func (s *Store) CurrentSelection() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection, s.selected
}

// ClearSelection returns the selection to the empty state.
func (s *Store) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	s.selection = ""
	s.selected = false
	s.mu.Unlock()

	metrics.ObserveSelection(string(links.SelectionClear), "ok")
	s.logger.Info("selection cleared")
	s.publish(ctx, links.SelectionEvent{Action: links.SelectionClear, At: s.clock.Now()})
}

func (s *Store) publish(ctx context.Context, event links.SelectionEvent) {
	if s.publisher == nil {
		return
	}
	id, err := s.publisher.Publish(ctx, event)
	if err != nil {
		s.logger.Warn("publish selection event failed",
			zap.String("action", string(event.Action)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("selection event published", zap.String("message_id", id))
}
