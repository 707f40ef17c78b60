// Package ratelimit implements per-client token bucket rate limiting for the
// HTTP API.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/appmeta/internal/metrics"
)

// Config holds rate limiter configuration. Requests tokens are granted per
// Window, and up to Requests may be spent at once.
type Config struct {
	Requests int
	Window   time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
	calls   int
}

// pruneEvery controls how many Allow calls pass between idle-bucket sweeps.
const pruneEvery = 1024

// New creates a Limiter. A non-positive Requests or Window disables limiting.
func New(cfg Config) *Limiter {
	l := &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Inf,
		burst:   1,
		now:     time.Now,
	}
	if cfg.Requests > 0 && cfg.Window > 0 {
		l.limit = rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds())
		l.burst = cfg.Requests
		l.idle = cfg.Window
	}
	return l
}

// Allow spends a token for key. When none is available it reports how long
// the caller should wait before retrying.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit == rate.Inf {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.calls++
	if l.calls%pruneEvery == 0 {
		l.pruneLocked(now)
	}
	l.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.idle
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// pruneLocked drops buckets idle for a full window; they would be full again.
func (l *Limiter) pruneLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.idle {
			delete(l.clients, key)
		}
	}
}

// Len reports the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
// Clients are keyed by remote IP, so it should run after any real-IP rewriting.
func (l *Limiter) Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			ok, retryAfter := l.Allow(key)
			if !ok {
				metrics.ObserveRateLimited()
				logger.Info("rate limited", zap.String("client", key), zap.Duration("retry_after", retryAfter))
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too Many Requests"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey returns the host part of the request's remote address.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
