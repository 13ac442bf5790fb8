// Package store persists geocoding answers so repeated runs over the same
// sheet do not pay for the same provider calls twice.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultTTL is used when a non-positive TTL is configured.
const DefaultTTL = 30 * 24 * time.Hour

// Cache is a key/value store with expiry. It satisfies geocode.Cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Migrate(ctx context.Context) error
	DeleteExpired(ctx context.Context) (int, error)
	Close() error
}

// Config selects and tunes a cache backend.
type Config struct {
	Driver  string // "sqlite" or "postgres"
	DSN     string
	TTLDays int
}

// TTL returns the entry lifetime.
func (c Config) TTL() time.Duration {
	if c.TTLDays <= 0 {
		return DefaultTTL
	}
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// Open connects to the configured backend and runs its migration.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "geo-enrich-cache.db"
		}
		c, err = NewSQLite(dsn, cfg.TTL())
	case "postgres", "postgresql":
		c, err = NewPostgres(ctx, cfg.DSN, cfg.TTL())
	default:
		return nil, eris.Errorf("store: unknown cache driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		c.Close() //nolint:errcheck
		return nil, err
	}
	return c, nil
}
