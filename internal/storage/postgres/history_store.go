// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/linkboard/internal/links"
)

const defaultTable = "refreshes"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// HistoryStoreConfig controls the Postgres connection pool used for refresh history.
type HistoryStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// HistoryStore records one row per successful refresh.
type HistoryStore struct {
	pool  pool
	table string
}

// NewHistoryStore connects to Postgres using the provided config.
func NewHistoryStore(ctx context.Context, cfg HistoryStoreConfig) (*HistoryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &HistoryStore{pool: p, table: table}, nil
}

// NewHistoryStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewHistoryStoreWithPool(p pool, table string) (*HistoryStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &HistoryStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *HistoryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the history table when it does not exist yet.
func (s *HistoryStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	refreshed_at TIMESTAMPTZ NOT NULL,
	tag_count INTEGER NOT NULL,
	entry_count INTEGER NOT NULL,
	payload JSONB NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// RecordSnapshot inserts a refresh row.
func (s *HistoryStore) RecordSnapshot(ctx context.Context, snap links.Snapshot) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("history store is not configured")
	}
	if snap.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	payload, err := json.Marshal(snapshotIndex(snap.Index))
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	refreshed_at,
	tag_count,
	entry_count,
	payload
) VALUES ($1,$2,$3,$4,$5)`, s.table)

	if _, err := s.pool.Exec(ctx, query, snap.ID, snap.RefreshedAt, snap.TagCount, snap.EntryCount, payload); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent refresh row. The boolean is false
// when the table is empty.
func (s *HistoryStore) LatestSnapshot(ctx context.Context) (links.Snapshot, bool, error) {
	query := fmt.Sprintf(`
SELECT id, refreshed_at, tag_count, entry_count, payload
FROM %s
ORDER BY refreshed_at DESC
LIMIT 1`, s.table)

	var (
		snap    links.Snapshot
		payload []byte
	)
	err := s.pool.QueryRow(ctx, query).Scan(
		&snap.ID,
		&snap.RefreshedAt,
		&snap.TagCount,
		&snap.EntryCount,
		&payload,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return links.Snapshot{}, false, nil
		}
		return links.Snapshot{}, false, fmt.Errorf("select latest snapshot: %w", err)
	}
	if err := json.Unmarshal(payload, &snap.Index); err != nil {
		return links.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	snap.Index = snapshotIndex(snap.Index)
	return snap, true, nil
}

func snapshotIndex(idx links.Index) links.Index {
	if idx == nil {
		return links.Index{}
	}
	return idx
}
