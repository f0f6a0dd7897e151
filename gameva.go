// Package gameva wires the storefront state layer together: identity
// resolution, the local cart, the remote-synchronized wishlist, the
// reference-data cache and cross-tab change notification, all constructed
// once and passed by reference instead of living in package-level state.
package gameva

import (
	"context"
	"fmt"

	"github.com/sedirimou/gameva/bus"
	"github.com/sedirimou/gameva/cart"
	"github.com/sedirimou/gameva/config"
	"github.com/sedirimou/gameva/health"
	"github.com/sedirimou/gameva/httpx"
	"github.com/sedirimou/gameva/identity"
	"github.com/sedirimou/gameva/kv"
	"github.com/sedirimou/gameva/observe"
	"github.com/sedirimou/gameva/refdata"
	"github.com/sedirimou/gameva/wishlist"
)

// Options configures the composition root. The zero value yields a working
// in-memory client against the default API URL.
type Options struct {
	// Config carries the environment-derived settings.
	Config config.Config

	// Storage overrides the store selected by Config.StoragePath.
	Storage kv.Store

	// Users supplies the authenticated user ID (e.g. an
	// identity.TokenUserProvider fed by the host page's bearer token).
	Users identity.UserProvider

	// Logger receives diagnostic output. Default: JSON to stderr at
	// Config.LogLevel.
	Logger observe.Logger

	// Metrics records store and cache activity. Default: discard.
	Metrics observe.Metrics

	// DisableCrossTab turns off revision polling (headless use).
	DisableCrossTab bool
}

// Client is the assembled state layer. Construct one per tab with New and
// release it with Close.
type Client struct {
	Identity *identity.Resolver
	Cart     *cart.Store
	Wishlist *wishlist.Store
	RefData  *refdata.Cache
	Bus      *bus.Bus
	Health   *health.Aggregator

	watcher     *bus.Watcher
	storage     kv.Store
	ownsStorage bool
}

// New assembles a client from options.
func New(opts Options) (*Client, error) {
	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = observe.NewLogger(cfg.LogLevel)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observe.NopMetrics()
	}

	storage := opts.Storage
	ownsStorage := false
	if storage == nil {
		if cfg.StoragePath != "" {
			bolt, err := kv.OpenBolt(cfg.StoragePath)
			if err != nil {
				return nil, fmt.Errorf("gameva: open storage: %w", err)
			}
			storage = bolt
			ownsStorage = true
		} else {
			storage = kv.NewMemory()
		}
	}

	b := bus.New()
	watcher := bus.NewWatcher(bus.WatcherConfig{
		Store:    storage,
		Bus:      b,
		Interval: cfg.PollInterval,
		Logger:   logger,
	})

	// Stores publish through the watcher so mutations reach other tabs;
	// with polling disabled they publish same-tab only.
	var publisher bus.Publisher = watcher
	if opts.DisableCrossTab {
		publisher = b
	} else {
		watcher.Start()
	}

	client := httpx.NewClient(httpx.Config{Timeout: cfg.HTTPTimeout})

	resolver := identity.NewResolver(identity.ResolverConfig{
		Store:  storage,
		Users:  opts.Users,
		Logger: logger,
	})

	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewStorageChecker(storage))
	agg.Register(health.NewRemoteChecker(cfg.APIBaseURL+"/filter-options", client))

	c := &Client{
		Identity: resolver,
		Bus:      b,
		Health:   agg,
		RefData: refdata.NewCache(refdata.CacheConfig{
			BaseURL: cfg.APIBaseURL,
			Storage: storage,
			Client:  client,
			TTL:     cfg.CacheTTL,
			Logger:  logger,
			Metrics: metrics,
		}),
		Cart: cart.NewStore(cart.StoreConfig{
			Storage:   storage,
			Publisher: publisher,
			Logger:    logger,
			Metrics:   metrics,
		}),
		Wishlist: wishlist.NewStore(wishlist.StoreConfig{
			BaseURL:   cfg.APIBaseURL,
			Resolver:  resolver,
			Client:    client,
			Publisher: publisher,
			Logger:    logger,
			Metrics:   metrics,
		}),
		watcher:     watcher,
		storage:     storage,
		ownsStorage: ownsStorage,
	}

	return c, nil
}

// OnCartChange subscribes a UI callback to cart mutations from this tab and
// others. The store is reloaded from shared storage before the callback
// runs, so re-pulling Cart.List never observes stale state.
func (c *Client) OnCartChange(callback func()) (unsubscribe func()) {
	return c.Bus.Subscribe(bus.TopicCart, func() {
		c.Cart.Reload()
		callback()
	})
}

// OnWishlistChange subscribes a UI callback to confirmed wishlist mutations.
// Callbacks re-pull via Wishlist.List (or Entries for the cached mirror).
func (c *Client) OnWishlistChange(callback func()) (unsubscribe func()) {
	return c.Bus.Subscribe(bus.TopicWishlist, callback)
}

// Preload warms the reference-data cache for first render.
func (c *Client) Preload(ctx context.Context) refdata.Snapshot {
	return c.RefData.PreloadAll(ctx)
}

// Logout clears the persisted session so the next resolve mints a fresh
// anonymous identity.
func (c *Client) Logout(ctx context.Context) error {
	return c.Identity.Clear(ctx)
}

// Close stops the cross-tab watcher and releases owned storage.
func (c *Client) Close() error {
	c.watcher.Stop()
	if c.ownsStorage {
		if closer, ok := c.storage.(interface{ Close() error }); ok {
			return closer.Close()
		}
	}
	return nil
}

// NewFromEnv assembles a client from environment configuration.
func NewFromEnv() (*Client, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return New(Options{Config: cfg})
}
