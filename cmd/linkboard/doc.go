// Package main hosts the linkboard service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the link directory (GET /, /refresh), the shared selection
//     (/set_url/{url}, /get_url, /empty), file uploads (POST /upload), and health/metrics endpoints.
//   - Directory state: internal/state.Store holds the last index, every URL ever seen, and the current selection
//     behind one RWMutex. Refreshes fetch outside the lock and are coalesced so concurrent callers share one fetch.
//   - Upstream: internal/notion pages through the database query API until has_more is false. Any failed page
//     aborts the refresh and the previous index is kept.
//   - Uploads: internal/upload buffers the multipart file, stamps its name with a UTC timestamp, and hands it to
//     Google Drive (default), GCS, a local directory, or memory.
//   - Persistence & fanout: each refresh is optionally recorded in Postgres and the latest one is restored at
//     startup. Selection changes are optionally published to Pub/Sub.
//   - Configuration & plumbing: Viper populates config from a YAML file and LINKBOARD_* env vars (plus a .env
//     file); zap provides structured logging; Prometheus metrics are served on /metrics.
//
// Quick checklist:
//   - Configure env vars: NOTION_TOKEN and DATABASE_ID (or LINKBOARD_NOTION_TOKEN / LINKBOARD_NOTION_DATABASE_ID),
//     LINKBOARD_UPLOAD_BACKEND, LINKBOARD_UPLOAD_DRIVE_FOLDER_ID and credentials, LINKBOARD_HISTORY_DSN, and
//     LINKBOARD_PUBSUB_PROJECT_ID / LINKBOARD_PUBSUB_TOPIC when those integrations are wanted.
//   - Run locally: go run ./cmd/linkboard serve --config config.yaml
//   - One-off dump: go run ./cmd/linkboard refresh prints the normalized index as JSON.
package main
