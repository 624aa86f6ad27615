package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/example/task-tracker-api/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Module owns the Redis connection behind the stats cache.
type Module struct {
	cache     *StatsCache
	redisAddr string
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the Redis client. The connection is verified in Start.
func NewModule(cfg config.CacheConfig, logger types.Logger) *Module {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &Module{
		cache:     New(client, cfg.Prefix, cfg.TTL),
		redisAddr: cfg.RedisAddr,
		logger:    logger.WithModule("cache"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Cache returns the stats cache.
func (m *Module) Cache() *StatsCache {
	return m.cache
}

// Start verifies the Redis connection.
func (m *Module) Start(ctx context.Context) error {
	if err := m.cache.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	m.logger.Info("Connected to Redis", "addr", m.redisAddr, "prefix", m.cache.prefix, "ttl", m.cache.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if err := m.cache.Close(); err != nil {
		m.logger.Error("Error closing Redis connection", "error", err)
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	m.logger.Info("Cache module stopped")
	return nil
}

// Health pings Redis and reports the hit counters.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	snapshot := m.cache.GetStats()
	details := map[string]any{
		"addr":     m.redisAddr,
		"hits":     snapshot.Hits,
		"misses":   snapshot.Misses,
		"hit_rate": snapshot.HitRate,
	}

	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
			Details: details,
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}
