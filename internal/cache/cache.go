package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/appmeta/internal/lookup"
	"github.com/JakeFAU/appmeta/internal/metrics"
)

// KeyPrefix namespaces lookup entries inside the store.
const KeyPrefix = "package_id:"

// DefaultTTL matches the lifetime of a cached lookup when Options.TTL is zero.
const DefaultTTL = 12 * time.Hour

// Store is the key-value backend used by Engine. Get reports ok=false for a
// missing or expired key.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Key returns the store key for id.
func Key(id lookup.PackageID) string {
	return KeyPrefix + id
}

// Options tunes Engine.
type Options struct {
	TTL time.Duration
	// OpTimeout bounds each store call. Zero uses the caller's context only.
	OpTimeout time.Duration
}

type record struct {
	Found    bool             `json:"found"`
	Metatags *lookup.Metatags `json:"metatags,omitempty"`
}

// Engine is a lookup.Engine that consults a Store before delegating.
type Engine struct {
	next   lookup.Engine
	store  Store
	opts   Options
	group  singleflight.Group
	logger *zap.Logger
}

// New wraps next with a cache backed by store.
func New(next lookup.Engine, store Store, opts Options, logger *zap.Logger) *Engine {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{next: next, store: store, opts: opts, logger: logger}
}

// Run returns the cached outcome for id, or performs the lookup once for all
// concurrent callers and stores the result.
func (e *Engine) Run(ctx context.Context, id lookup.PackageID) (lookup.Metatags, error) {
	key := Key(id)
	if rec, ok := e.cached(ctx, key); ok {
		metrics.ObserveCache(metrics.CacheHit)
		return rec.result()
	}

	leader := false
	ch := e.group.DoChan(key, func() (any, error) {
		leader = true
		// The shared call outlives any single caller so that a canceled
		// request does not fail the others waiting on it.
		return e.fill(context.WithoutCancel(ctx), id, key)
	})

	select {
	case <-ctx.Done():
		return lookup.Metatags{}, ctx.Err()
	case res := <-ch:
		if !leader {
			metrics.ObserveCache(metrics.CacheShared)
		}
		if res.Err != nil {
			return lookup.Metatags{}, res.Err
		}
		md, _ := res.Val.(lookup.Metatags)
		return md, nil
	}
}

func (r record) result() (lookup.Metatags, error) {
	if !r.Found {
		return lookup.Metatags{}, lookup.ErrNotFound
	}
	return *r.Metatags, nil
}

func (e *Engine) fill(ctx context.Context, id lookup.PackageID, key string) (lookup.Metatags, error) {
	// Another caller may have stored the value between our miss and the
	// start of this flight.
	if rec, ok := e.cached(ctx, key); ok {
		return rec.result()
	}
	metrics.ObserveCache(metrics.CacheMiss)

	md, err := e.next.Run(ctx, id)
	switch {
	case err == nil:
		e.put(ctx, key, record{Found: true, Metatags: &md})
		return md, nil
	case errors.Is(err, lookup.ErrNotFound):
		e.put(ctx, key, record{Found: false})
		return lookup.Metatags{}, err
	default:
		return lookup.Metatags{}, err
	}
}

// cached reports ok=true when key holds a usable record. Store failures and
// undecodable records are treated as misses.
func (e *Engine) cached(ctx context.Context, key string) (record, bool) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	raw, ok, err := e.store.Get(opCtx, key)
	if err != nil {
		metrics.ObserveCache(metrics.CacheError)
		e.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return record{}, false
	}
	if !ok {
		return record{}, false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || (rec.Found && rec.Metatags == nil) {
		metrics.ObserveCache(metrics.CacheError)
		e.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return record{}, false
	}
	return rec, true
}

func (e *Engine) put(ctx context.Context, key string, rec record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		e.logger.Error("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.Set(opCtx, key, raw, e.opts.TTL); err != nil {
		metrics.ObserveCache(metrics.CacheError)
		e.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.OpTimeout > 0 {
		return context.WithTimeout(ctx, e.opts.OpTimeout)
	}
	return context.WithCancel(ctx)
}

// Ping checks that the backing store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
