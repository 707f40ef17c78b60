package api

import (
	"fmt"
	"net/http"

	"github.com/JakeFAU/appmeta/internal/lookup"
)

type docParam struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	Repeated    bool   `json:"repeated"`
	Description string `json:"description"`
}

type docRoute struct {
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Params      []docParam     `json:"params,omitempty"`
	Responses   map[int]string `json:"responses"`
}

type apiDoc struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Routes      []docRoute `json:"routes"`
}

// Version is reported by /docs.
var Version = "1.0.0"

func lookupResponses() map[int]string {
	return map[int]string{
		http.StatusOK:                  "JSON array of {id, name, logo, url, description}",
		http.StatusBadRequest:          "no IDs, blank IDs, or more than the maximum batch size",
		http.StatusNotFound:            "package not found",
		http.StatusTooManyRequests:     "client rate limit exceeded",
		http.StatusInternalServerError: "malformed upstream response",
		http.StatusBadGateway:          "upstream search failed",
		http.StatusGatewayTimeout:      "request timed out",
	}
}

func (s *Server) docs(w http.ResponseWriter, _ *http.Request) {
	idParam := docParam{
		Name:        "id",
		In:          "query",
		Repeated:    true,
		Description: fmt.Sprintf("Android package ID, 1 to %d per request", lookup.MaxBatchSize),
	}
	writeJSON(w, http.StatusOK, apiDoc{
		Title:       "Google Play Store Metadata API",
		Description: "Return relevant metadata from Google Play Store for a given package ID.",
		Version:     Version,
		Routes: []docRoute{
			{
				Method:      http.MethodGet,
				Path:        "/search",
				Description: "Look up every ID and return the found records.",
				Params:      []docParam{idParam},
				Responses:   lookupResponses(),
			},
			{
				Method:      http.MethodGet,
				Path:        "/search/stream",
				Description: "Same as /search, streaming records as each lookup completes.",
				Params:      []docParam{idParam},
				Responses:   lookupResponses(),
			},
			{Method: http.MethodGet, Path: "/healthz", Description: "Liveness probe.", Responses: map[int]string{http.StatusOK: "alive"}},
			{Method: http.MethodGet, Path: "/readyz", Description: "Readiness probe; pings the cache store.", Responses: map[int]string{
				http.StatusOK:                 "ready",
				http.StatusServiceUnavailable: "cache store unreachable",
			}},
			{Method: http.MethodGet, Path: "/metrics", Description: "Prometheus metrics.", Responses: map[int]string{http.StatusOK: "text exposition format"}},
		},
	})
}
