package main

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geo-enrich/internal/config"
	"github.com/sells-group/geo-enrich/internal/enrich"
	"github.com/sells-group/geo-enrich/internal/resilience"
	"github.com/sells-group/geo-enrich/internal/store"
	"github.com/sells-group/geo-enrich/pkg/geocode"
)

// providerFactory builds fully decorated providers from config: the raw
// adapter, an optional answer cache, then retry and circuit breaking. The
// rate limiter and circuit breaker are kept per provider name, so every
// provider value built for a name shares them; only credentials vary.
type providerFactory struct {
	cfg   *config.Config
	cache geocode.Cache
	opts  []geocode.Option

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*resilience.CircuitBreaker
}

func newProviderFactory(c *config.Config, cache geocode.Cache, extra ...geocode.Option) *providerFactory {
	opts := []geocode.Option{
		geocode.WithTimeout(c.Geocode.Timeout()),
		geocode.WithCountry(c.Geocode.Country),
		geocode.WithUserAgent(c.Geocode.UserAgent),
	}
	if c.Geocode.NominatimURL != "" {
		opts = append(opts, geocode.WithBaseURL(c.Geocode.NominatimURL))
	}
	return &providerFactory{
		cfg:      c,
		cache:    cache,
		opts:     append(opts, extra...),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

// shared returns the limiter and breaker for name, creating them on first use.
func (f *providerFactory) shared(name string) (*rate.Limiter, *resilience.CircuitBreaker) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[name]
	if !ok {
		l = geocode.NewLimiter(name, f.cfg.Geocode.RateLimit)
		f.limiters[name] = l
	}
	b, ok := f.breakers[name]
	if !ok {
		b = enrich.NewBreaker(name, resilience.FromBreakerConfig(f.cfg.Batch.CircuitThreshold, f.cfg.Batch.CircuitResetSecs))
		f.breakers[name] = b
	}
	return l, b
}

// build returns the provider for name and apiKey. Blank values fall back to
// the configured provider and key; a key is only reused for the provider it
// was configured for.
func (f *providerFactory) build(name, apiKey string) (geocode.Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	configured := strings.ToLower(f.cfg.Geocode.Provider)
	if name == "" {
		name = configured
	}
	if apiKey == "" && name == configured {
		apiKey = f.cfg.Geocode.APIKey
	}

	opts := f.opts
	var breaker *resilience.CircuitBreaker
	if geocode.Supported(name) {
		var limiter *rate.Limiter
		limiter, breaker = f.shared(name)
		opts = append(slices.Clone(f.opts), geocode.WithLimiter(limiter))
	}

	p, err := geocode.New(name, geocode.Credentials{APIKey: apiKey}, opts...)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		p = geocode.NewCachedProvider(p, f.cache)
	}

	retry := resilience.FromRetryConfig(f.cfg.Batch.RetryAttempts, f.cfg.Batch.RetryInitialBackoffMs, f.cfg.Batch.RetryMaxBackoffMs)
	return enrich.Guard(p, retry, breaker), nil
}

func (f *providerFactory) resolverOptions() []enrich.ResolverOption {
	if f.cfg.Geocode.AdoptReverseUnchecked {
		return []enrich.ResolverOption{enrich.AdoptReverseUnchecked()}
	}
	return nil
}

// openCache opens the configured cache and prunes expired entries. The
// returned close func is always safe to call.
func openCache(ctx context.Context, c config.CacheConfig) (geocode.Cache, func(), error) {
	if !c.Enabled {
		return nil, func() {}, nil
	}
	cache, err := store.Open(ctx, store.Config{Driver: c.Driver, DSN: c.DSN, TTLDays: c.TTLDays})
	if err != nil {
		return nil, func() {}, err
	}
	if n, err := cache.DeleteExpired(ctx); err != nil {
		zap.L().Warn("cache: prune expired entries", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("cache: pruned expired entries", zap.Int("count", n))
	}
	return cache, func() {
		if err := cache.Close(); err != nil {
			zap.L().Warn("cache: close", zap.Error(err))
		}
	}, nil
}
