package products

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

const catalogVersionCounter = "catalog_version"

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(parts ...string) string
	CounterKey(name string) string
}

// listingCache stores catalog pages under a version counter. Bumping the
// counter orphans every previous key, which then age out by TTL.
type listingCache struct {
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

func (c *listingCache) enabled() bool {
	return c != nil && c.store != nil && c.ttl > 0
}

// lookup returns the cached page, if any, and the key to fill on a miss.
// An empty key means the cache is unavailable for this request.
func (c *listingCache) lookup(ctx context.Context, role enums.Role, query listQuery) (*productPage, string) {
	if !c.enabled() {
		return nil, ""
	}
	version, err := c.store.Get(ctx, c.store.CounterKey(catalogVersionCounter))
	if errors.Is(err, redis.Nil) {
		version = "0"
	} else if err != nil {
		c.logg.Warn(ctx, "catalog cache version unavailable: "+err.Error())
		return nil, ""
	}

	parts := append([]string{"catalog", "v" + version, string(role)}, query.cacheKeyParts()...)
	key := c.store.CacheKey(parts...)

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logg.Warn(ctx, "catalog cache read failed: "+err.Error())
		}
		return nil, key
	}
	var page productPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		c.logg.Warn(ctx, "catalog cache entry unreadable: "+err.Error())
		return nil, key
	}
	return &page, key
}

func (c *listingCache) fill(ctx context.Context, key string, page *productPage) {
	if !c.enabled() || key == "" || page == nil {
		return
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logg.Warn(ctx, "catalog cache write failed: "+err.Error())
	}
}

func (c *listingCache) invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	next, err := c.store.Incr(ctx, c.store.CounterKey(catalogVersionCounter))
	if err != nil {
		c.logg.Warn(ctx, "catalog cache invalidation failed: "+err.Error())
		return
	}
	c.logg.Debug(c.logg.WithField(ctx, "catalog_version", next), "catalog cache invalidated")
}

// CatalogCache lets writers outside this package, such as checkout and order
// rejection, drop cached listing pages after they change stock.
type CatalogCache struct {
	cache *listingCache
}

// NewCatalogCache shares the listing cache version counter. A nil store
// makes Invalidate a no-op.
func NewCatalogCache(store cacheStore, cfg config.CatalogConfig, logg *logger.Logger) *CatalogCache {
	if logg == nil {
		logg = logger.Nop()
	}
	return &CatalogCache{cache: &listingCache{store: store, ttl: cfg.CacheTTL, logg: logg}}
}

// Invalidate must run after the stock change has committed.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.cache.invalidate(ctx)
}
