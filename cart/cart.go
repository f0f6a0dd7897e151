package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sedirimou/gameva/bus"
	"github.com/sedirimou/gameva/kv"
	"github.com/sedirimou/gameva/observe"
)

// LinesKey is the storage key holding the serialized cart collection.
const LinesKey = "cart:lines"

// Product is the catalog input for Add. Only ID is required.
type Product struct {
	ID       string
	Name     string
	Price    float64
	Platform string
	ImageRef string
}

// Line is one cart entry. PriceSnapshot is the price at add time; catalog
// price changes do not retroactively reprice the cart.
type Line struct {
	ProductID     string  `json:"productId"`
	Quantity      int     `json:"quantity"`
	PriceSnapshot float64 `json:"priceSnapshot"`
	Name          string  `json:"name"`
	Platform      string  `json:"platform"`
	ImageRef      string  `json:"imageRef"`
}

// StoreConfig configures the cart store.
type StoreConfig struct {
	// Storage persists the cart collection. Default: kv.Null (ephemeral).
	Storage kv.Store

	// Publisher announces committed mutations on the cart topic.
	// Default: a private bus nobody listens to.
	Publisher bus.Publisher

	// Logger receives diagnostic output. Default: discard.
	Logger observe.Logger

	// Metrics records committed mutations. Default: discard.
	Metrics observe.Metrics
}

// Store is the local cart store: the sole source of truth for cart state.
// All methods are synchronous and never call the network.
type Store struct {
	storage kv.Store
	pub     bus.Publisher
	logger  observe.Logger
	metrics observe.Metrics

	mu    sync.Mutex
	lines []Line
}

// NewStore creates a cart store and restores any persisted collection.
// A corrupt persisted payload is discarded and the cart starts empty.
func NewStore(config StoreConfig) *Store {
	if config.Storage == nil {
		config.Storage = kv.NewNull()
	}
	if config.Publisher == nil {
		config.Publisher = bus.New()
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}

	s := &Store{
		storage: config.Storage,
		pub:     config.Publisher,
		logger:  config.Logger.WithScope("cart"),
		metrics: config.Metrics,
	}
	s.restore()
	return s
}

// Add puts a product in the cart. Adding a product already present
// increments its quantity instead of duplicating the line. Quantities below
// one are treated as one. Returns false only when the product has no usable
// identifier.
func (s *Store) Add(product Product, quantity int) bool {
	if product.ID == "" {
		return false
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	if line := s.findLocked(product.ID); line != nil {
		line.Quantity += quantity
	} else {
		s.lines = append(s.lines, Line{
			ProductID:     product.ID,
			Quantity:      quantity,
			PriceSnapshot: product.Price,
			Name:          product.Name,
			Platform:      product.Platform,
			ImageRef:      product.ImageRef,
		})
	}
	s.persistLocked()
	s.mu.Unlock()

	s.commit("add")
	return true
}

// Remove deletes a product's line. Returns false only when productID is
// empty.
func (s *Store) Remove(productID string) bool {
	if productID == "" {
		return false
	}

	s.mu.Lock()
	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	s.lines = kept
	s.persistLocked()
	s.mu.Unlock()

	s.commit("remove")
	return true
}

// SetQuantity replaces a line's quantity. A quantity of zero or less removes
// the line. Returns false only when productID is empty.
func (s *Store) SetQuantity(productID string, quantity int) bool {
	if productID == "" {
		return false
	}
	if quantity <= 0 {
		return s.Remove(productID)
	}

	s.mu.Lock()
	if line := s.findLocked(productID); line != nil {
		line.Quantity = quantity
	}
	s.persistLocked()
	s.mu.Unlock()

	s.commit("set_quantity")
	return true
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.persistLocked()
	s.mu.Unlock()

	s.commit("clear")
}

// List returns the cart lines in insertion order.
func (s *Store) List() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// Total returns the cart total from price snapshots.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0.0
	for _, line := range s.lines {
		total += line.PriceSnapshot * float64(line.Quantity)
	}
	return total
}

// Reload replaces in-memory state with the persisted collection. The
// cross-tab synchronizer's subscribers call this before re-rendering.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.restoreLocked()
}

func (s *Store) findLocked(productID string) *Line {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return &s.lines[i]
		}
	}
	return nil
}

// persistLocked writes the whole collection in one atomic Set. A storage
// failure keeps the in-memory mutation and degrades to unpersisted state.
func (s *Store) persistLocked() {
	payload, err := json.Marshal(s.lines)
	if err != nil {
		s.logger.Warn(context.Background(), "encode cart failed", observe.Err(err))
		return
	}
	if err := s.storage.Set(LinesKey, payload); err != nil {
		s.logger.Warn(context.Background(), "persist cart failed", observe.Err(err))
	}
}

func (s *Store) restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked()
}

func (s *Store) restoreLocked() {
	raw, ok, err := s.storage.Get(LinesKey)
	if err != nil || !ok {
		return
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		// Corrupt payload is treated as absent.
		s.logger.Warn(context.Background(), "discarding corrupt cart payload", observe.Err(err))
		return
	}
	s.lines = lines
}

func (s *Store) commit(op string) {
	s.metrics.RecordMutation(context.Background(), bus.TopicCart, op)
	s.pub.Publish(bus.TopicCart)
}
