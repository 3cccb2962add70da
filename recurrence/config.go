package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the expansion engine
type EngineConfig struct {
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences caps how many instances a single expansion returns.
	MaxOccurrences int
	// MaxRange caps the span of a single expansion; longer ranges are
	// truncated at rangeStart+MaxRange. Zero means no cap.
	MaxRange time.Duration
}

// DefaultEngineConfig provides defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	MaxOccurrences: 1000,
	MaxRange:       2 * 365 * 24 * time.Hour,
}

// HighPerformanceConfig is tuned for many repeated window queries
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},

	MaxOccurrences: 500,
	MaxRange:       365 * 24 * time.Hour,
}

// LowMemoryConfig is tuned for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},

	MaxOccurrences: 200,
	MaxRange:       180 * 24 * time.Hour,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,

	MaxOccurrences: 5000,
	MaxRange:       5 * 365 * 24 * time.Hour,
}

// NewEngineWithConfig creates an expansion engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *Cache
	if config.CacheEnabled {
		cache = NewCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
	}
}
