package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// CacheEntry holds one memoized expansion.
type CacheEntry struct {
	Occurrences []Occurrence
	ExpiresAt   time.Time
	AccessedAt  time.Time
}

// Cache memoizes occurrence expansions for a series and a range.
type Cache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the expansion cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides defaults for expansion caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewCache creates a cache and starts its cleanup goroutine. Call Close to
// stop it.
func NewCache(config CacheConfig) *Cache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}

	cache := &Cache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes everything that changes an expansion result.
func cacheKey(dtstart time.Time, duration time.Duration, rule Rule, rangeStart, rangeEnd time.Time) string {
	hasher := sha256.New()

	hasher.Write([]byte(dtstart.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(dtstart.Location().String()))
	hasher.Write([]byte(duration.String()))
	hasher.Write([]byte(rangeStart.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(rangeEnd.UTC().Format(time.RFC3339Nano)))
	hasher.Write([]byte(Encode(rule).OrEmpty()))

	// Encode drops BYSETPOS and BYDAY outside their frequency; hash them anyway.
	for _, d := range rule.DaysOfWeek.OrEmpty() {
		hasher.Write([]byte(d))
	}
	if pos, ok := rule.WeekPositionInMonth.Get(); ok {
		hasher.Write([]byte(fmt.Sprintf("pos=%d", pos)))
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get returns a cached expansion if it exists and has not expired.
func (c *Cache) Get(dtstart time.Time, duration time.Duration, rule Rule, rangeStart, rangeEnd time.Time) ([]Occurrence, bool) {
	key := cacheKey(dtstart, duration, rule, rangeStart, rangeEnd)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	entry.AccessedAt = now
	return slices.Clone(entry.Occurrences), true
}

// Set stores an expansion result.
func (c *Cache) Set(dtstart time.Time, duration time.Duration, rule Rule, rangeStart, rangeEnd time.Time, occurrences []Occurrence) {
	key := cacheKey(dtstart, duration, rule, rangeStart, rangeEnd)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &CacheEntry{
		Occurrences: slices.Clone(occurrences),
		ExpiresAt:   now.Add(c.ttl),
		AccessedAt:  now,
	}

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// until the cache is within its limit. Caller holds the write lock.
func (c *Cache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}

	keys := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keys = append(keys, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].accessedAt.Before(keys[j].accessedAt)
	})

	excess := len(c.entries) - c.maxEntries
	for i := 0; i < excess; i++ {
		delete(c.entries, keys[i].key)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to call
// more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := len(c.entries)
	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   total,
		ExpiredEntries: expired,
		ActiveEntries:  total - expired,
	}
}

// CacheStats provides information about cache occupancy
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
