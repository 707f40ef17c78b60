// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported search backends.
const (
	EngineCSE       = "cse"
	EnginePlayStore = "playstore"
)

// Supported cache drivers.
const (
	CacheRedis  = "redis"
	CacheValkey = "valkey"
	CacheMemory = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// SearchConfig selects and configures the upstream search backend.
type SearchConfig struct {
	Engine         string `mapstructure:"engine"`
	APIKey         string `mapstructure:"api_key"`
	EngineID       string `mapstructure:"engine_id"`
	Endpoint       string `mapstructure:"endpoint"`
	StoreURL       string `mapstructure:"store_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CacheConfig selects the cache store and its policy.
type CacheConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
	// KeyPrefix ends in ':' by convention; quote it in YAML (key_prefix: "cache:").
	KeyPrefix string `mapstructure:"key_prefix"`
	// TTLHours defaults to 12, matching cache.DefaultTTL.
	TTLHours    int `mapstructure:"ttl_hours"`
	OpTimeoutMs int `mapstructure:"op_timeout_ms"`
}

// RateLimitConfig bounds requests per client address.
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Requests      int  `mapstructure:"requests"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file and the environment.
// With an empty path, appmeta.{yaml,json,toml} is looked up in the working
// directory, /etc/appmeta and $HOME/.appmeta; a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APPMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("appmeta")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/appmeta/")
		v.AddConfigPath("$HOME/.appmeta")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("search.engine", EngineCSE)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.endpoint", "https://customsearch.googleapis.com/customsearch/v1")
	v.SetDefault("search.store_url", "https://play.google.com/store/apps/details")
	v.SetDefault("search.user_agent", "appmeta/1.0")
	v.SetDefault("search.timeout_seconds", 10)
	v.SetDefault("cache.driver", CacheRedis)
	v.SetDefault("cache.url", "")
	v.SetDefault("cache.key_prefix", "cache:")
	v.SetDefault("cache.ttl_hours", 12)
	v.SetDefault("cache.op_timeout_ms", 500)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window_seconds", 1800)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// bindLegacyEnv accepts the unprefixed variable names used by existing
// deployments and by Cloud Run (PORT) alongside the APPMETA_ ones.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"search.api_key":   {"APPMETA_SEARCH_API_KEY", "SEARCH_API_KEY"},
		"search.engine_id": {"APPMETA_SEARCH_ENGINE_ID", "SEARCH_ENGINE_ID"},
		"cache.url":        {"APPMETA_CACHE_URL", "REDIS_URL"},
		"server.port":      {"APPMETA_SERVER_PORT", "PORT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	switch c.Search.Engine {
	case EngineCSE:
		if c.Search.APIKey == "" {
			return fmt.Errorf("search.api_key must be set (SEARCH_API_KEY)")
		}
		if c.Search.EngineID == "" {
			return fmt.Errorf("search.engine_id must be set (SEARCH_ENGINE_ID)")
		}
		if c.Search.Endpoint == "" {
			return fmt.Errorf("search.endpoint must be set")
		}
	case EnginePlayStore:
		if c.Search.StoreURL == "" {
			return fmt.Errorf("search.store_url must be set")
		}
	default:
		return fmt.Errorf("search.engine must be %q or %q, got %q", EngineCSE, EnginePlayStore, c.Search.Engine)
	}
	if c.Search.TimeoutSeconds <= 0 {
		return fmt.Errorf("search.timeout_seconds must be > 0")
	}
	switch c.Cache.Driver {
	case CacheRedis, CacheValkey:
		if c.Cache.URL == "" {
			return fmt.Errorf("cache.url must be set for the %s driver (REDIS_URL)", c.Cache.Driver)
		}
	case CacheMemory:
	default:
		return fmt.Errorf("cache.driver must be one of redis, valkey, memory, got %q", c.Cache.Driver)
	}
	if c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.ttl_hours must be > 0")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.WindowSeconds <= 0) {
		return fmt.Errorf("ratelimit.requests and ratelimit.window_seconds must be > 0 when rate limiting is enabled")
	}
	return nil
}

// RequestTimeout is the budget for one inbound request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// UpstreamTimeout bounds a single upstream search call.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// CacheTTL is the lifetime of a cached lookup.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// CacheOpTimeout bounds a single cache store round trip.
func (c Config) CacheOpTimeout() time.Duration {
	return time.Duration(c.Cache.OpTimeoutMs) * time.Millisecond
}

// RateLimitWindow is the period over which RateLimit.Requests are allowed.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
