package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/observability"
	"github.com/openlearnhq/atrium/pkg/storage"
)

// NewRedisClient connects a Redis client from the storage config.
func NewRedisClient(cfg storage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB > 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisMaxRetries > 0 {
		opts.MaxRetries = cfg.RedisMaxRetries
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// CachedSessionStore fronts a session store with a small in-process LRU
// and a shared Redis tier. Only the record is cached; expiry and
// revocation are still enforced per request by the resolver, so the
// cache TTL merely bounds how long a freshly revoked session may linger.
type CachedSessionStore struct {
	source  auth.SessionStore
	redis   *redis.Client
	local   *expirable.LRU[string, *auth.SessionRecord]
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewCachedSessionStore(source auth.SessionStore, client *redis.Client, cfg storage.Config, metrics *observability.Metrics) *CachedSessionStore {
	size := cfg.SessionCacheSize
	if size <= 0 {
		size = 4096
	}
	ttl := cfg.SessionCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedSessionStore{
		source:  source,
		redis:   client,
		local:   expirable.NewLRU[string, *auth.SessionRecord](size, nil, ttl),
		ttl:     ttl,
		metrics: metrics,
	}
}

func sessionKey(tokenHash string) string {
	return "atrium:session:" + tokenHash
}

func (c *CachedSessionStore) GetSession(ctx context.Context, tokenHash string) (*auth.SessionRecord, error) {
	if rec, ok := c.local.Get(tokenHash); ok {
		c.observeHit()
		return rec, nil
	}

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, sessionKey(tokenHash)).Bytes()
		if err == nil {
			var rec auth.SessionRecord
			if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
				rec.TokenHash = tokenHash
				c.local.Add(tokenHash, &rec)
				c.observeHit()
				return &rec, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// Redis being down degrades to source reads, nothing more.
			c.observeMiss()
			return c.source.GetSession(ctx, tokenHash)
		}
	}

	c.observeMiss()
	rec, err := c.source.GetSession(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	c.local.Add(tokenHash, rec)
	if c.redis != nil {
		if raw, err := json.Marshal(rec); err == nil {
			c.redis.Set(ctx, sessionKey(tokenHash), raw, c.ttl)
		}
	}
	return rec, nil
}

// Invalidate drops a session from both cache tiers, called on logout
// and revocation so the cache window does not outlive an explicit
// revoke.
func (c *CachedSessionStore) Invalidate(ctx context.Context, tokenHash string) {
	c.local.Remove(tokenHash)
	if c.redis != nil {
		c.redis.Del(ctx, sessionKey(tokenHash))
	}
}

func (c *CachedSessionStore) observeHit() {
	if c.metrics != nil {
		c.metrics.SessionCacheHits.Inc()
		c.metrics.SessionLookupsTotal.WithLabelValues("hit").Inc()
	}
}

func (c *CachedSessionStore) observeMiss() {
	if c.metrics != nil {
		c.metrics.SessionCacheMisses.Inc()
		c.metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
	}
}
