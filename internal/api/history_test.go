package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkboard/internal/links"
)

type stubHistory struct {
	snapshot links.Snapshot
	found    bool
	err      error
}

func (h *stubHistory) RecordSnapshot(context.Context, links.Snapshot) error { return nil }

func (h *stubHistory) LatestSnapshot(context.Context) (links.Snapshot, bool, error) {
	return h.snapshot, h.found, h.err
}

func TestHistoryLatest_Disabled(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, &stubFetcher{}, Options{})
	rec := do(t, server, http.MethodGet, "/history/latest", nil, "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryLatest_NothingRecorded(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, &stubFetcher{}, Options{History: &stubHistory{}})
	rec := do(t, server, http.MethodGet, "/history/latest", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"no refresh recorded"}`, rec.Body.String())
}

func TestHistoryLatest_StoreFailure(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, &stubFetcher{}, Options{History: &stubHistory{err: errors.New("conn reset")}})
	rec := do(t, server, http.MethodGet, "/history/latest", nil, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "conn reset")
}

func TestHistoryLatest_ReturnsSnapshot(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	history := &stubHistory{found: true, snapshot: links.Snapshot{
		ID:          "0190f5c2-0000-7000-8000-000000000001",
		RefreshedAt: at,
		TagCount:    2,
		EntryCount:  3,
		Index: links.Index{
			"Tools": {{Tag: "Tools", Name: "Jenkins"}, {Tag: "Tools", Name: "Grafana"}},
			"Docs":  {{Tag: "Docs", Name: "Handbook"}},
		},
	}}
	server, _ := newTestServer(t, &stubFetcher{}, Options{History: history})
	rec := do(t, server, http.MethodGet, "/history/latest", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Snapshot snapshotDTO `json:"snapshot"`
	}](t, rec)
	require.Equal(t, history.snapshot.ID, body.Snapshot.ID)
	require.True(t, at.Equal(body.Snapshot.RefreshedAt))
	require.Equal(t, 3, body.Snapshot.EntryCount)
	require.Equal(t, []string{"Docs", "Tools"}, body.Snapshot.Tags)
}
