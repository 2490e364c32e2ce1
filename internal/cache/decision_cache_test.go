package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialty-map-server/internal/domain"
)

func newTestCache(t *testing.T, cfg domain.CacheConfig) *DecisionCache {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleInput() domain.RawInput {
	return domain.RawInput{Source: "MGMA", RawName: "Cardiology"}
}

func sampleDecision() *domain.Decision {
	return &domain.Decision{
		Input:              sampleInput(),
		DecidedCanonicalID: "CARD-GENERAL",
		Confidence:         0.85,
		Domain:             domain.ADULT,
		ParentBucket:       "Cardiology",
	}
}

func TestKey(t *testing.T) {
	a := Key(domain.RawInput{Source: "MGMA", RawName: "Cardiology"})
	b := Key(domain.RawInput{Source: "MGMA", RawName: "Cardiology"})
	c := Key(domain.RawInput{Source: "AMGA", RawName: "Cardiology"})
	d := Key(domain.RawInput{Source: "MGMA", RawName: "Cardiology", DomainHint: domain.PEDIATRIC})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "source participates in the key")
	assert.NotEqual(t, a, d, "domain hint participates in the key")
	assert.Contains(t, a, "decision:")
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t, domain.CacheConfig{MaxItems: 100, TTL: time.Minute})
	ctx := context.Background()

	_, hit := c.Get(ctx, sampleInput())
	assert.False(t, hit)

	c.Set(ctx, sampleInput(), sampleDecision())

	got, hit := c.Get(ctx, sampleInput())
	require.True(t, hit)
	assert.Equal(t, "CARD-GENERAL", got.DecidedCanonicalID)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.MemoryMisses)
	assert.Equal(t, int64(2), stats.TotalRequests)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, domain.CacheConfig{MaxItems: 100, TTL: 10 * time.Millisecond})
	ctx := context.Background()

	c.Set(ctx, sampleInput(), sampleDecision())
	time.Sleep(25 * time.Millisecond)

	_, hit := c.Get(ctx, sampleInput())
	assert.False(t, hit, "expired entries must not be served")
}

func TestCachePurge(t *testing.T) {
	c := newTestCache(t, domain.CacheConfig{MaxItems: 100, TTL: time.Minute})
	ctx := context.Background()

	c.Set(ctx, sampleInput(), sampleDecision())
	c.Purge(ctx)

	_, hit := c.Get(ctx, sampleInput())
	assert.False(t, hit)
}

func TestCacheDefaults(t *testing.T) {
	c := newTestCache(t, domain.CacheConfig{})
	assert.Equal(t, 24*time.Hour, c.ttl)
}

func TestCacheRejectsBadRedisURL(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := New(domain.CacheConfig{RedisURL: "://not-a-url"}, logger)
	require.Error(t, err)
}
