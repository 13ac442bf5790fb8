package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Cache stores serialized provider answers. Implementations handle expiry;
// a miss is reported as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// CachedProvider memoizes successful and empty answers of another provider.
// Transport and parse failures are never stored.
type CachedProvider struct {
	inner Provider
	cache Cache
}

// NewCachedProvider decorates p with cache c.
func NewCachedProvider(p Provider, c Cache) *CachedProvider {
	return &CachedProvider{inner: p, cache: c}
}

// Name returns the wrapped provider's name.
func (c *CachedProvider) Name() string { return c.inner.Name() }

// Forward consults the cache before calling the wrapped provider.
func (c *CachedProvider) Forward(ctx context.Context, query string) ForwardResult {
	key := ForwardKey(c.inner.Name(), query)

	var cached ForwardResult
	if c.lookup(ctx, key, &cached) {
		return cached
	}

	res := c.inner.Forward(ctx, query)
	if cacheable(res.OK, res.Failure) {
		c.store(ctx, key, res)
	}
	return res
}

// Reverse consults the cache before calling the wrapped provider.
func (c *CachedProvider) Reverse(ctx context.Context, lat, lon float64) ReverseResult {
	key := ReverseKey(c.inner.Name(), lat, lon)

	var cached ReverseResult
	if c.lookup(ctx, key, &cached) {
		return cached
	}

	res := c.inner.Reverse(ctx, lat, lon)
	if cacheable(res.OK, res.Failure) {
		c.store(ctx, key, res)
	}
	return res
}

func (c *CachedProvider) lookup(ctx context.Context, key string, out any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.String("provider", c.inner.Name()), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		zap.L().Warn("geocode: cache entry unreadable", zap.String("provider", c.inner.Name()), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedProvider) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Put(ctx, key, data); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.String("provider", c.inner.Name()), zap.Error(err))
	}
}

func cacheable(ok bool, f Failure) bool {
	return ok || f == FailureNoResults
}

// ForwardKey is the cache key for a forward query: SHA-256 of the provider
// name and the whitespace-collapsed, lowercased query.
func ForwardKey(provider, query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return hashKey("fwd|" + provider + "|" + normalized)
}

// ReverseKey is the cache key for a reverse lookup. Coordinates are rounded
// to five decimals (about one metre).
func ReverseKey(provider string, lat, lon float64) string {
	return hashKey(fmt.Sprintf("rev|%s|%.5f,%.5f", provider, lat, lon))
}

func hashKey(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
