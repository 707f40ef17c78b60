package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/appmeta/internal/hash/sha256"
	"github.com/JakeFAU/appmeta/internal/lookup"
	"github.com/JakeFAU/appmeta/internal/metrics"
	"github.com/JakeFAU/appmeta/internal/policy/ratelimit"
)

// Searcher resolves batches of package IDs.
type Searcher interface {
	Search(ctx context.Context, ids []lookup.PackageID) ([]lookup.Metatags, error)
	Stream(ctx context.Context, ids []lookup.PackageID) (<-chan lookup.Result, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IDGenerator produces request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Options configures optional server behavior.
type Options struct {
	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
	// Limiter throttles lookup routes per client. Nil disables limiting.
	Limiter *ratelimit.Limiter
	// Ready is pinged by /readyz. Nil means always ready.
	Ready Pinger
}

// Server wires HTTP handlers to the lookup service.
type Server struct {
	router   chi.Router
	searcher Searcher
	ready    Pinger
	hasher   *sha256.Hasher
	logger   *zap.Logger
}

const compressionLevel = 5

// NewServer constructs a Server with middleware and routes.
func NewServer(searcher Searcher, idGen IDGenerator, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		ready:    opts.Ready,
		hasher:   sha256.New(),
		logger:   logger,
	}

	compressor := middleware.NewCompressor(compressionLevel, "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(idGen))
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware(logger))
		}
		if opts.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(opts.RequestTimeout))
		}
		r.Use(cacheControlMiddleware)
		r.Use(compressor.Handler)

		r.Get("/", s.root)
		r.Get("/docs", s.docs)
		r.Get("/search", s.search)
		r.Get("/search/stream", s.searchStream)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusMovedPermanently)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, map[string]string{"error": msg})
}
