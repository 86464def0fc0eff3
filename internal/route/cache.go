package route

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Store persists provider routes between restarts
type Store interface {
	GetRoute(ctx context.Context, key string) (*Route, bool, error)
	PutRoute(ctx context.Context, key string, r *Route) error
}

// CachedProvider fronts a Provider with an in-memory LRU and an optional
// persistent Store. Lookups go memory, store, then provider.
type CachedProvider struct {
	next  Provider
	store Store
	lru   *expirable.LRU[string, *Route]
}

// NewCachedProvider creates a CachedProvider. store may be nil.
func NewCachedProvider(next Provider, store Store, size int, ttl time.Duration) *CachedProvider {
	if size <= 0 {
		size = 256
	}
	return &CachedProvider{
		next:  next,
		store: store,
		lru:   expirable.NewLRU[string, *Route](size, nil, ttl),
	}
}

// CacheKey identifies an origin/destination pair at ~1 m resolution
func CacheKey(origin, destination geo.Point) string {
	return fmt.Sprintf("%.5f,%.5f|%.5f,%.5f",
		origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude)
}

// Route implements Provider
func (c *CachedProvider) Route(ctx context.Context, origin, destination geo.Point) (*Route, error) {
	key := CacheKey(origin, destination)

	if r, ok := c.lru.Get(key); ok {
		return r, nil
	}

	if c.store != nil {
		r, ok, err := c.store.GetRoute(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Route store read failed")
		} else if ok {
			c.lru.Add(key, r)
			return r, nil
		}
	}

	r, err := c.next.Route(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	if r == nil || len(r.Geometry) == 0 {
		return r, nil
	}

	c.lru.Add(key, r)
	if c.store != nil {
		if err := c.store.PutRoute(ctx, key, r); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Route store write failed")
		}
	}

	return r, nil
}

// Len returns the number of routes held in memory
func (c *CachedProvider) Len() int {
	return c.lru.Len()
}
