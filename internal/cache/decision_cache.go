// Package cache provides a two-tier cache for mapping decisions. The engine
// is deterministic, so a cached decision is exactly the decision the engine
// would compute again for the same input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
)

// Stats represents cache performance statistics.
type Stats struct {
	MemoryHits    int64     `json:"memory_hits"`
	MemoryMisses  int64     `json:"memory_misses"`
	RedisHits     int64     `json:"redis_hits"`
	RedisMisses   int64     `json:"redis_misses"`
	TotalRequests int64     `json:"total_requests"`
	LastReset     time.Time `json:"last_reset"`
}

type memoryEntry struct {
	decision  *domain.Decision
	expiresAt time.Time
}

// DecisionCache caches decisions in an in-memory LRU (tier 1) and an
// optional Redis instance (tier 2). Redis is best-effort: failures are
// logged and treated as misses.
type DecisionCache struct {
	memory *lru.Cache[string, memoryEntry]
	redis  *redis.Client
	ttl    time.Duration

	logger  *logrus.Logger
	stats   Stats
	statsMu sync.Mutex
}

// New creates a decision cache. redisURL may be empty, which disables the
// second tier.
func New(cfg domain.CacheConfig, logger *logrus.Logger) (*DecisionCache, error) {
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = 10000
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	memory, err := lru.New[string, memoryEntry](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	c := &DecisionCache{
		memory: memory,
		ttl:    ttl,
		logger: logger,
		stats:  Stats{LastReset: time.Now()},
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.redis = client
	}

	return c, nil
}

// Key derives the cache key for an input. Two inputs with the same source,
// raw name, provider type, and domain hint share a key.
func Key(input domain.RawInput) string {
	data := fmt.Sprintf("%s:%s:%s:%s", input.Source, input.RawName, input.ProviderType, input.DomainHint)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("decision:%x", hash[:8])
}

// Get retrieves a cached decision. The second return value reports a hit.
func (c *DecisionCache) Get(ctx context.Context, input domain.RawInput) (*domain.Decision, bool) {
	key := Key(input)

	c.statsMu.Lock()
	c.stats.TotalRequests++
	c.statsMu.Unlock()

	if entry, ok := c.memory.Get(key); ok {
		if time.Now().Before(entry.expiresAt) {
			c.bump(func(s *Stats) { s.MemoryHits++ })
			return entry.decision, true
		}
		c.memory.Remove(key)
	}
	c.bump(func(s *Stats) { s.MemoryMisses++ })

	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.bump(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis get failed, treating as miss")
		c.bump(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}

	var decision domain.Decision
	if err := json.Unmarshal([]byte(val), &decision); err != nil {
		c.redis.Del(ctx, key)
		c.bump(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}

	c.bump(func(s *Stats) { s.RedisHits++ })
	// Promote to tier 1.
	c.memory.Add(key, memoryEntry{decision: &decision, expiresAt: time.Now().Add(c.ttl)})
	return &decision, true
}

// Set caches a decision in both tiers.
func (c *DecisionCache) Set(ctx context.Context, input domain.RawInput, decision *domain.Decision) {
	key := Key(input)
	c.memory.Add(key, memoryEntry{decision: decision, expiresAt: time.Now().Add(c.ttl)})

	if c.redis == nil {
		return
	}

	data, err := json.Marshal(decision)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal decision for cache")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis set failed")
	}
}

// Purge drops all tier 1 entries. Called after configuration reload so stale
// decisions never outlive the documents that produced them.
func (c *DecisionCache) Purge(ctx context.Context) {
	c.memory.Purge()
	if c.redis != nil {
		if err := c.redis.FlushDB(ctx).Err(); err != nil {
			c.logger.WithError(err).Warn("Redis flush failed")
		}
	}
}

// GetStats returns a snapshot of cache statistics.
func (c *DecisionCache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Close releases the Redis connection if one is configured.
func (c *DecisionCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *DecisionCache) bump(f func(*Stats)) {
	c.statsMu.Lock()
	f(&c.stats)
	c.statsMu.Unlock()
}
