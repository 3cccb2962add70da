package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cacheStart      = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cacheRangeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cacheRangeEnd   = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
)

func sampleOccurrences() []Occurrence {
	return []Occurrence{{Start: cacheStart, End: cacheStart.Add(time.Hour)}}
}

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: time.Minute,
	})
	defer cache.Close()

	rule := Rule{Frequency: Daily, Occurrences: mo.Some[uint32](5)}

	got, found := cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
	assert.False(t, found)
	assert.Nil(t, got)

	cache.Set(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd, sampleOccurrences())

	got, found = cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
	require.True(t, found)
	assert.Equal(t, sampleOccurrences(), got)
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             100 * time.Millisecond,
		MaxEntries:      100,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer cache.Close()

	rule := Rule{Frequency: Daily}
	cache.Set(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd, sampleOccurrences())

	_, found := cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
	require.True(t, found)

	time.Sleep(150 * time.Millisecond)

	_, found = cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
	assert.False(t, found)
}

func TestCache_DifferentKeys(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	daily := Rule{Frequency: Daily}
	weekly := Rule{Frequency: Weekly}
	nthSunday := Rule{Frequency: Monthly, DaysOfWeek: mo.Some([]string{"su"}), WeekPositionInMonth: mo.Some[int32](1)}
	lastSunday := Rule{Frequency: Monthly, DaysOfWeek: mo.Some([]string{"su"}), WeekPositionInMonth: mo.Some[int32](-1)}

	cache.Set(cacheStart, time.Hour, daily, cacheRangeStart, cacheRangeEnd, sampleOccurrences())
	cache.Set(cacheStart, time.Hour, nthSunday, cacheRangeStart, cacheRangeEnd, nil)

	_, found := cache.Get(cacheStart, time.Hour, weekly, cacheRangeStart, cacheRangeEnd)
	assert.False(t, found)
	_, found = cache.Get(cacheStart, 2*time.Hour, daily, cacheRangeStart, cacheRangeEnd)
	assert.False(t, found)
	_, found = cache.Get(cacheStart, time.Hour, lastSunday, cacheRangeStart, cacheRangeEnd)
	assert.False(t, found)

	_, found = cache.Get(cacheStart, time.Hour, daily, cacheRangeStart, cacheRangeEnd)
	assert.True(t, found)
	_, found = cache.Get(cacheStart, time.Hour, nthSunday, cacheRangeStart, cacheRangeEnd)
	assert.True(t, found)
}

func TestCache_Stats(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	assert.Equal(t, CacheStats{}, cache.Stats())

	for i := 0; i < 5; i++ {
		rule := Rule{Frequency: Daily, Interval: mo.Some(uint32(i + 1))}
		cache.Set(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd, sampleOccurrences())
	}

	stats := cache.Stats()
	assert.Equal(t, 5, stats.TotalEntries)
	assert.Equal(t, 5, stats.ActiveEntries)
	assert.Equal(t, 0, stats.ExpiredEntries)
}

func TestCache_MaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             time.Hour,
		MaxEntries:      3,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	rules := make([]Rule, 4)
	for i := range rules {
		rules[i] = Rule{Frequency: Daily, Interval: mo.Some(uint32(i + 1))}
	}

	for i := 0; i < 3; i++ {
		cache.Set(cacheStart, time.Hour, rules[i], cacheRangeStart, cacheRangeEnd, nil)
		time.Sleep(2 * time.Millisecond)
	}

	// Touch the oldest so the second entry becomes the eviction candidate.
	_, found := cache.Get(cacheStart, time.Hour, rules[0], cacheRangeStart, cacheRangeEnd)
	require.True(t, found)
	time.Sleep(2 * time.Millisecond)

	cache.Set(cacheStart, time.Hour, rules[3], cacheRangeStart, cacheRangeEnd, nil)

	assert.Equal(t, 3, cache.Stats().TotalEntries)
	_, found = cache.Get(cacheStart, time.Hour, rules[1], cacheRangeStart, cacheRangeEnd)
	assert.False(t, found)
	_, found = cache.Get(cacheStart, time.Hour, rules[0], cacheRangeStart, cacheRangeEnd)
	assert.True(t, found)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rule := Rule{Frequency: Weekly, WeekStart: mo.Some(fmt.Sprintf("g%d-%d", g, i%5))}
				cache.Set(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd, sampleOccurrences())
				cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 40, cache.Stats().TotalEntries)
}

func TestCache_CloseTwice(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	cache.Close()
	assert.NotPanics(t, cache.Close)
	assert.Equal(t, 0, cache.Stats().TotalEntries)
}

func TestCache_ReturnsCopies(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	rule := Rule{Frequency: Daily}
	stored := sampleOccurrences()
	cache.Set(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd, stored)
	stored[0].Start = time.Time{}

	got, found := cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
	require.True(t, found)
	got[0].Start = time.Time{}

	again, found := cache.Get(cacheStart, time.Hour, rule, cacheRangeStart, cacheRangeEnd)
	require.True(t, found)
	assert.Equal(t, sampleOccurrences(), again)
}
