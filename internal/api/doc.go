// Package api hosts the HTTP server, middleware, and handlers for package
// metadata lookups. Notable routes:
//   - GET /search?id=...&id=... returns a JSON array of metadata records.
//   - GET /search/stream?id=... streams the same array as lookups complete.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET / redirects to GET /docs, a JSON description of the API.
package api
