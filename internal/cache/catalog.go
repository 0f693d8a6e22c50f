// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// catalog.go provides the Valkey-backed cache for storefront JSON. Public
// catalog responses are stored by request key so repeat visits skip
// MongoDB; every admin write bumps the catalog version and flushes the
// whole prefix.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// catalogKeyPrefix is the Valkey key prefix for cached catalog responses.
	catalogKeyPrefix = "catalog:"

	// catalogVersionKey counts invalidations. It lives outside the prefix so
	// a flush never resets it.
	catalogVersionKey = "catalog-version"

	// DefaultCatalogTTL is how long a catalog response stays cached.
	DefaultCatalogTTL = 5 * time.Minute
)

// setIfVersion stores ARGV[2] under KEYS[2] for ARGV[3] milliseconds only
// when the version in KEYS[1] still equals ARGV[1].
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// CatalogCache stores rendered storefront responses in Valkey. Errors are
// logged and treated as misses so the storefront keeps working without
// the cache.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a catalog cache backed by the given Valkey client.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl == 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Get retrieves a cached response body. Returns false on miss.
func (c *CatalogCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, catalogKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("catalog cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("catalog cache hit", "key", key)
	return val, true
}

// Version returns the current catalog version. Read it before loading the
// data a response is built from. Returns -1 when Valkey is unreachable,
// which no later Set will match.
func (c *CatalogCache) Version(ctx context.Context) int64 {
	v, err := c.client.Get(ctx, catalogVersionKey).Int64()
	if err == redis.Nil {
		return 0
	}
	if err != nil {
		slog.Warn("catalog cache version error", "error", err)
		return -1
	}
	return v
}

// Set stores a response body under key with the configured TTL, unless the
// catalog was invalidated since version was read.
func (c *CatalogCache) Set(ctx context.Context, version int64, key string, body []byte) {
	if version < 0 {
		return
	}
	keys := []string{catalogVersionKey, catalogKeyPrefix + key}
	stored, err := setIfVersion.Run(ctx, c.client, keys, strconv.FormatInt(version, 10), body, c.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Warn("catalog cache set error", "key", key, "error", err)
		return
	}
	if stored == 0 {
		slog.Debug("catalog cache set skipped, catalog changed", "key", key)
	}
}

// InvalidateAll removes every cached catalog response by scanning for the
// prefix. Called after any admin mutation since listings, detail pages and
// category lists may all be affected.
func (c *CatalogCache) InvalidateAll(ctx context.Context) {
	if err := c.client.Incr(ctx, catalogVersionKey).Err(); err != nil {
		slog.Warn("catalog cache version bump error", "error", err)
	}

	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, catalogKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("catalog cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("catalog cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("catalog cache cleared", "deleted", deleted)
	}
}
