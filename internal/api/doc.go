// Package api hosts the HTTP server, middleware, and handlers of the link
// directory. Notable routes:
//   - GET /refresh re-reads the Notion database and returns the new index.
//   - GET / returns the last index.
//   - GET /set_url/{url...}, /get_url and /empty manage the shared selection.
//   - POST /upload forwards a multipart "file" to the storage backend.
//   - GET /history/latest reports the last persisted refresh.
//   - GET /healthz / readyz for Kubernetes probes and /metrics for Prometheus.
package api
