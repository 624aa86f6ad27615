// Package cache provides a Redis-backed cache-aside layer for task stats.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domain "github.com/example/task-tracker-api/domain/task"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds a shared load once it is detached from its caller.
const loadTimeout = 10 * time.Second

// storeIfCurrent writes the stats only while the owner's generation still
// matches the one read before the load started.
var storeIfCurrent = redis.NewScript(`
	local gen = redis.call('GET', KEYS[1]) or ''
	if gen ~= ARGV[1] then
		return 0
	end
	local ttl_ms = tonumber(ARGV[3])
	if ttl_ms > 0 then
		redis.call('SET', KEYS[2], ARGV[2], 'PX', ttl_ms)
	else
		redis.call('SET', KEYS[2], ARGV[2])
	end
	return 1
`)

// bumpGeneration advances the owner's generation and drops the cached stats.
var bumpGeneration = redis.NewScript(`
	redis.call('INCR', KEYS[1])
	return redis.call('DEL', KEYS[2])
`)

// StatsCache caches per-owner task stats under prefix+ownerID. Each owner
// also has a generation counter under prefix+ownerID+":gen" that Invalidate
// advances, so a load that overlaps an invalidation never gets cached.
type StatsCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	stats   counters
	sfGroup singleflight.Group
}

type counters struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
	errors  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the cache counters.
type StatsSnapshot struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Sets      uint64  `json:"sets"`
	Deletes   uint64  `json:"deletes"`
	Errors    uint64  `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
	TotalGets uint64  `json:"total_gets"`
}

// New creates a StatsCache over client.
func New(client *redis.Client, prefix string, ttl time.Duration) *StatsCache {
	return &StatsCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *StatsCache) key(ownerID string) string {
	return c.prefix + ownerID
}

func (c *StatsCache) genKey(ownerID string) string {
	return c.prefix + ownerID + ":gen"
}

// generation returns the owner's current generation, "" if never invalidated.
func (c *StatsCache) generation(ctx context.Context, ownerID string) (string, error) {
	gen, err := c.client.Get(ctx, c.genKey(ownerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		c.stats.errors.Add(1)
		return "", fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

// setIfCurrent stores stats unless the owner was invalidated after gen was read.
func (c *StatsCache) setIfCurrent(ctx context.Context, ownerID, gen string, s domain.Stats) (bool, error) {
	data, err := json.Marshal(s)
	if err != nil {
		c.stats.errors.Add(1)
		return false, fmt.Errorf("cache marshal error: %w", err)
	}

	stored, err := storeIfCurrent.Run(ctx, c.client,
		[]string{c.genKey(ownerID), c.key(ownerID)},
		gen, data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.stats.errors.Add(1)
		return false, fmt.Errorf("cache set error: %w", err)
	}
	if stored == 1 {
		c.stats.sets.Add(1)
	}
	return stored == 1, nil
}

// Get reads cached stats. found is false on a miss.
func (c *StatsCache) Get(ctx context.Context, ownerID string) (domain.Stats, bool, error) {
	var s domain.Stats

	data, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.stats.misses.Add(1)
			return s, false, nil
		}
		c.stats.errors.Add(1)
		return s, false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		c.stats.errors.Add(1)
		return s, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	c.stats.hits.Add(1)
	return s, true, nil
}

// Set stores stats with the configured TTL.
func (c *StatsCache) Set(ctx context.Context, ownerID string, s domain.Stats) error {
	data, err := json.Marshal(s)
	if err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.key(ownerID), data, c.ttl).Err(); err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache set error: %w", err)
	}

	c.stats.sets.Add(1)
	return nil
}

// GetOrLoad returns cached stats or computes them with load and caches the
// result. Concurrent misses for one owner share a single load, which runs
// detached from the first caller's cancellation. The result is not cached
// if Invalidate ran while it was loading. Redis errors fall through to load.
func (c *StatsCache) GetOrLoad(ctx context.Context, ownerID string, load func(context.Context) (domain.Stats, error)) (domain.Stats, error) {
	if s, found, err := c.Get(ctx, ownerID); err == nil && found {
		return s, nil
	}

	val, err, _ := c.sfGroup.Do(ownerID, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen, genErr := c.generation(loadCtx, ownerID)
		s, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			// A failed or skipped write only costs a future miss.
			_, _ = c.setIfCurrent(loadCtx, ownerID, gen, s)
		}
		return s, nil
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return val.(domain.Stats), nil
}

// Invalidate drops the owner's cached stats and advances their generation so
// a load already in flight does not write its result back.
func (c *StatsCache) Invalidate(ctx context.Context, ownerID string) error {
	c.sfGroup.Forget(ownerID)

	keys := []string{c.genKey(ownerID), c.key(ownerID)}
	if err := bumpGeneration.Run(ctx, c.client, keys).Err(); err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache delete error: %w", err)
	}

	c.stats.deletes.Add(1)
	return nil
}

// GetStats returns the current cache counters.
func (c *StatsCache) GetStats() StatsSnapshot {
	hits := c.stats.hits.Load()
	misses := c.stats.misses.Load()
	totalGets := hits + misses

	var hitRate float64
	if totalGets > 0 {
		hitRate = float64(hits) / float64(totalGets) * 100
	}

	return StatsSnapshot{
		Hits:      hits,
		Misses:    misses,
		Sets:      c.stats.sets.Load(),
		Deletes:   c.stats.deletes.Load(),
		Errors:    c.stats.errors.Load(),
		HitRate:   hitRate,
		TotalGets: totalGets,
	}
}

// Ping checks if the Redis connection is healthy.
func (c *StatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *StatsCache) Close() error {
	return c.client.Close()
}
