// Package cmd defines the appmeta CLI.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes /search and /search/stream. Requests carry 1 to 10 package IDs as
//     repeated id query parameters; each ID is resolved concurrently and results are returned as a JSON array.
//   - Lookup pipeline: internal/lookup.Service fans a batch out to one goroutine per ID over a lookup.Engine. The
//     engine is a cache.Engine wrapping the configured search backend (Google Custom Search or the store page).
//   - Cache: found and not-found outcomes are kept for 12h in Redis, Valkey or an in-process map. Concurrent cold
//     lookups of one ID share a single upstream call.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler; per-client rate limiting guards the
//     lookup routes.
//
// Quick checklist:
//   - Configure env vars: SEARCH_API_KEY, SEARCH_ENGINE_ID and REDIS_URL (or APPMETA_SEARCH_API_KEY,
//     APPMETA_SEARCH_ENGINE_ID, APPMETA_CACHE_URL). APPMETA_CACHE_DRIVER=memory runs without Redis.
//   - Run locally: go run . serve --config appmeta.yaml, or go run . lookup com.google.android.apps.maps.
//   - Cloud Run: the server listens on PORT and drains in-flight requests on SIGTERM.
package cmd
