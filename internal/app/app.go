// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/appmeta/internal/cache"
	"github.com/JakeFAU/appmeta/internal/cache/memory"
	"github.com/JakeFAU/appmeta/internal/cache/redisstore"
	"github.com/JakeFAU/appmeta/internal/cache/valkeystore"
	"github.com/JakeFAU/appmeta/internal/clock/system"
	"github.com/JakeFAU/appmeta/internal/config"
	"github.com/JakeFAU/appmeta/internal/httpclient"
	"github.com/JakeFAU/appmeta/internal/lookup"
	"github.com/JakeFAU/appmeta/internal/policy/ratelimit"
	"github.com/JakeFAU/appmeta/internal/search/cse"
	"github.com/JakeFAU/appmeta/internal/search/playstore"
)

// App holds the shared services built from one Config: the cache store, the
// cached search engine, the fan-out service and the rate limiter.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   cache.Store
	cache   *cache.Engine
	service *lookup.Service
	limiter *ratelimit.Limiter
}

// New opens the configured cache store and wires the lookup pipeline around
// it. It fails fast when the store cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	a, err := NewWithStore(cfg, logger, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore wires the lookup pipeline around an already opened store.
// The App takes ownership of store.
func NewWithStore(cfg config.Config, logger *zap.Logger, store cache.Store) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine, err := NewEngine(cfg.Search, cfg.UpstreamTimeout(), httpclient.New(), logger)
	if err != nil {
		return nil, err
	}
	cached := cache.New(engine, store, cache.Options{
		TTL:       cfg.CacheTTL(),
		OpTimeout: cfg.CacheOpTimeout(),
	}, logger.Named("cache"))

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimitWindow(),
		})
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		cache:   cached,
		service: lookup.NewService(cached, logger.Named("lookup")),
		limiter: limiter,
	}, nil
}

// OpenStore connects to the cache store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.CacheRedis:
		logger.Info("using redis cache store")
		store, err := redisstore.Open(ctx, cfg.URL, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return store, nil
	case config.CacheValkey:
		logger.Info("using valkey cache store")
		store, err := valkeystore.Open(ctx, cfg.URL, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("open valkey cache: %w", err)
		}
		return store, nil
	case config.CacheMemory:
		logger.Info("using in-memory cache store; entries are not shared between instances")
		return memory.New(system.New()), nil
	default:
		return nil, fmt.Errorf("unknown cache driver: %s", cfg.Driver)
	}
}

// NewEngine builds the uncached search backend selected by cfg.Engine.
func NewEngine(cfg config.SearchConfig, timeout time.Duration, client *http.Client, logger *zap.Logger) (lookup.Engine, error) {
	switch cfg.Engine {
	case config.EngineCSE:
		return cse.New(cse.Config{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			EngineID: cfg.EngineID,
			Timeout:  timeout,
		}, client, logger.Named(cse.EngineName)), nil
	case config.EnginePlayStore:
		return playstore.New(playstore.Config{
			StoreURL:  cfg.StoreURL,
			UserAgent: cfg.UserAgent,
			Timeout:   timeout,
		}, client, logger.Named(playstore.EngineName)), nil
	default:
		return nil, fmt.Errorf("unknown search engine: %s", cfg.Engine)
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Service returns the fan-out lookup service.
func (a *App) Service() *lookup.Service {
	return a.service
}

// Cache returns the caching engine, which also serves as the readiness probe.
func (a *App) Cache() *cache.Engine {
	return a.cache
}

// Limiter returns the per-client rate limiter, or nil when disabled.
func (a *App) Limiter() *ratelimit.Limiter {
	return a.limiter
}

// Close releases the cache store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close cache store: %w", err)
	}
	return nil
}
