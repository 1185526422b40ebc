package links

import (
	"context"
	"time"
)

// Fetcher returns every visible record from the upstream database.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]Record, error)
}

// HistoryStore persists refresh snapshots.
type HistoryStore interface {
	RecordSnapshot(ctx context.Context, snapshot Snapshot) error
	LatestSnapshot(ctx context.Context) (Snapshot, bool, error)
}

// Publisher pushes selection events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// FileStore hands a buffered upload to a storage provider.
type FileStore interface {
	Store(ctx context.Context, object UploadObject) (StoredFile, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Hasher computes a content digest for uploads.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator produces snapshot IDs.
type IDGenerator interface {
	NewID() (string, error)
}
