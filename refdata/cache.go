package refdata

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sedirimou/gameva/httpx"
	"github.com/sedirimou/gameva/kv"
	"github.com/sedirimou/gameva/observe"
)

// KeyPrefix namespaces every cache entry in shared storage.
const KeyPrefix = "refdata:"

// LastUpdatedKey holds the time of the most recent successful fetch, shared
// across collections.
const LastUpdatedKey = KeyPrefix + "last_updated"

// DefaultTTL bounds entry freshness for every collection.
const DefaultTTL = 24 * time.Hour

// Collection keys and endpoint paths.
const (
	collCategories = "categories"
	collPlatforms  = "platforms"
	collFilters    = "filter_options"
	collSettings   = "settings"
)

var collectionPaths = map[string]string{
	collCategories: "/categories/main-menu",
	collPlatforms:  "/attributes/platforms",
	collFilters:    "/filter-options",
	collSettings:   "/site-settings",
}

// entry is the storage envelope. Served only while now-WrittenAt < TTL.
type entry struct {
	WrittenAt time.Time       `json:"writtenAt"`
	Payload   json.RawMessage `json:"payload"`
}

// CacheConfig configures the reference-data cache.
type CacheConfig struct {
	// BaseURL is the catalog API root, without a trailing slash.
	BaseURL string

	// Storage persists cache entries. Default: in-memory (per-process
	// caching only).
	Storage kv.Store

	// Client issues the catalog fetches. Default: httpx defaults.
	Client *httpx.Client

	// TTL bounds entry freshness. Default: 24h.
	TTL time.Duration

	// Logger receives diagnostic output. Default: discard.
	Logger observe.Logger

	// Metrics records lookups and fetch failures. Default: discard.
	Metrics observe.Metrics

	// Now is the clock used for freshness checks. Tests override it.
	Now func() time.Time
}

// Cache is the read-through reference-data cache.
type Cache struct {
	baseURL string
	storage kv.Store
	client  *httpx.Client
	ttl     time.Duration
	logger  observe.Logger
	metrics observe.Metrics
	now     func() time.Time

	sf singleflight.Group
}

// NewCache creates a cache, applying defaults.
func NewCache(config CacheConfig) *Cache {
	if config.Storage == nil {
		config.Storage = kv.NewMemory()
	}
	if config.Client == nil {
		config.Client = httpx.NewClient(httpx.Config{})
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Cache{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		storage: config.Storage,
		client:  config.Client,
		ttl:     config.TTL,
		logger:  config.Logger.WithScope("refdata"),
		metrics: config.Metrics,
		now:     config.Now,
	}
}

// Categories returns the main-menu category tree, or an empty slice when
// neither cache nor network can supply it.
func (c *Cache) Categories(ctx context.Context) []Category {
	v, _ := lookup(ctx, c, collCategories, decodeCategories)
	return v
}

// Platforms returns the platform attribute values.
func (c *Cache) Platforms(ctx context.Context) []Platform {
	v, _ := lookup(ctx, c, collPlatforms, decodePlatforms)
	return v
}

// FilterOptions returns the filter facet vocabularies.
func (c *Cache) FilterOptions(ctx context.Context) FilterOptions {
	v, _ := lookup(ctx, c, collFilters, decodeFilterOptions)
	return v
}

// Settings returns the site settings collection.
func (c *Cache) Settings(ctx context.Context) SiteSettings {
	v, _ := lookup(ctx, c, collSettings, decodeSettings)
	return v
}

// PreloadAll fetches every collection concurrently and reports whether the
// whole snapshot came from cache. Individual failures degrade to empty
// collections, so PreloadAll never blocks first paint on an error.
func (c *Cache) PreloadAll(ctx context.Context) Snapshot {
	var snap Snapshot
	cached := [4]bool{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Categories, cached[0] = lookup(ctx, c, collCategories, decodeCategories)
		return nil
	})
	g.Go(func() error {
		snap.Platforms, cached[1] = lookup(ctx, c, collPlatforms, decodePlatforms)
		return nil
	})
	g.Go(func() error {
		snap.FilterOptions, cached[2] = lookup(ctx, c, collFilters, decodeFilterOptions)
		return nil
	})
	g.Go(func() error {
		snap.Settings, cached[3] = lookup(ctx, c, collSettings, decodeSettings)
		return nil
	})
	_ = g.Wait()

	snap.Cached = cached[0] && cached[1] && cached[2] && cached[3]
	return snap
}

// Invalidate removes every cache entry and the shared last-updated marker.
// The next lookup of each collection refetches.
func (c *Cache) Invalidate(ctx context.Context) error {
	keys, err := c.storage.Keys(KeyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.storage.Delete(key); err != nil {
			return err
		}
	}
	c.logger.Info(ctx, "reference cache invalidated", observe.Field{Key: "entries", Value: len(keys)})
	return nil
}

// LastUpdated returns the time of the most recent successful fetch across
// all collections.
func (c *Cache) LastUpdated() (time.Time, bool) {
	raw, ok, err := c.storage.Get(LastUpdatedKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// lookup is the read-through path shared by every collection: storage when
// fresh, one coalesced network fetch otherwise, zero value on failure. The
// second return reports a cache hit.
func lookup[T any](ctx context.Context, c *Cache, collection string, decode func(json.RawMessage) (T, error)) (T, bool) {
	var zero T

	if raw, ok := c.fresh(collection); ok {
		value, err := decode(raw)
		if err == nil {
			c.metrics.RecordCacheLookup(ctx, collection, true)
			return value, true
		}
		// Corrupt payload: fall through to a refetch.
		c.logger.Warn(ctx, "discarding corrupt cache payload",
			observe.String("collection", collection), observe.Err(err))
	}

	c.metrics.RecordCacheLookup(ctx, collection, false)

	// Coalesce concurrent misses into one fetch per collection.
	raw, err, _ := c.sf.Do(collection, func() (any, error) {
		return c.fetch(ctx, collection)
	})
	if err != nil {
		c.metrics.RecordRemoteError(ctx, "refdata."+collection)
		c.logger.Warn(ctx, "reference fetch failed, serving empty collection",
			observe.String("collection", collection), observe.Err(err))
		return zero, false
	}

	value, err := decode(raw.(json.RawMessage))
	if err != nil {
		c.logger.Warn(ctx, "reference payload undecodable",
			observe.String("collection", collection), observe.Err(err))
		return zero, false
	}
	return value, false
}

// fresh returns the stored payload when the entry exists, parses and is
// within TTL. Everything else is a miss.
func (c *Cache) fresh(collection string) (json.RawMessage, bool) {
	raw, ok, err := c.storage.Get(KeyPrefix + collection)
	if err != nil || !ok {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if c.now().Sub(e.WrittenAt) >= c.ttl {
		return nil, false
	}
	return e.Payload, true
}

// fetch issues the collection's GET and stores the successful payload with a
// fresh timestamp.
func (c *Cache) fetch(ctx context.Context, collection string) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.client.Get(ctx, c.baseURL+collectionPaths[collection], &payload); err != nil {
		return nil, err
	}

	now := c.now()
	stored, err := json.Marshal(entry{WrittenAt: now, Payload: payload})
	if err == nil {
		if err := c.storage.Set(KeyPrefix+collection, stored); err != nil {
			c.logger.Warn(ctx, "persist cache entry failed",
				observe.String("collection", collection), observe.Err(err))
		}
		if err := c.storage.Set(LastUpdatedKey, []byte(strconv.FormatInt(now.UnixMilli(), 10))); err != nil {
			c.logger.Warn(ctx, "persist last-updated failed", observe.Err(err))
		}
	}

	return payload, nil
}
