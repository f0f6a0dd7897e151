package wishlist

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/sedirimou/gameva/bus"
	"github.com/sedirimou/gameva/httpx"
	"github.com/sedirimou/gameva/identity"
	"github.com/sedirimou/gameva/observe"
)

// Sentinel errors surfaced through Result.Err.
var (
	// ErrAlreadyInWishlist marks the benign 409 on adding a product twice.
	ErrAlreadyInWishlist = errors.New("wishlist: already in wishlist")

	// ErrMissingProduct is returned for operations without a product ID.
	ErrMissingProduct = errors.New("wishlist: product id is required")

	// ErrUnavailable wraps transport failures. Callers degrade the feature
	// rather than breaking navigation.
	ErrUnavailable = errors.New("wishlist: service unavailable")
)

// Product is the catalog input for Add.
type Product struct {
	ID       string
	Name     string
	Price    float64
	Platform string
	Genres   []string
	ImageRef string
}

// Entry is one confirmed wishlist row. Its ID is the product ID.
type Entry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Platform string   `json:"platform"`
	Genres   []string `json:"genres"`
	ImageRef string   `json:"imageRef"`
}

// Result is the outcome of a wishlist mutation. Mutations never return Go
// errors directly: transport failures and conflicts are folded in here so
// nothing propagates uncaught to the UI.
type Result struct {
	Success      bool
	Err          error
	DeletedCount int
}

// Conflict reports the benign already-in-wishlist condition, so callers can
// suppress alarming messaging.
func (r Result) Conflict() bool {
	return errors.Is(r.Err, ErrAlreadyInWishlist)
}

// Resolver supplies the identity that namespaces every remote call.
type Resolver interface {
	Resolve(ctx context.Context) identity.Identity
}

// StoreConfig configures the wishlist store.
type StoreConfig struct {
	// BaseURL is the wishlist API root, without a trailing slash.
	BaseURL string

	// Resolver derives the request ownership identity.
	// Default: an unpersisted anonymous resolver.
	Resolver Resolver

	// Client issues the remote calls. Default: httpx defaults.
	Client *httpx.Client

	// Publisher announces confirmed mutations on the wishlist topic.
	// Default: a private bus nobody listens to.
	Publisher bus.Publisher

	// Logger receives diagnostic output. Default: discard.
	Logger observe.Logger

	// Metrics records mutations and remote failures. Default: discard.
	Metrics observe.Metrics
}

// Store is the remote-synchronized wishlist store.
type Store struct {
	endpoint string
	resolver Resolver
	client   *httpx.Client
	pub      bus.Publisher
	logger   observe.Logger
	metrics  observe.Metrics

	mu      sync.Mutex
	entries []Entry

	listMu     sync.Mutex
	cancelList context.CancelFunc
}

// NewStore creates a wishlist store, applying defaults.
func NewStore(config StoreConfig) *Store {
	if config.Resolver == nil {
		config.Resolver = identity.NewResolver(identity.ResolverConfig{})
	}
	if config.Client == nil {
		config.Client = httpx.NewClient(httpx.Config{})
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

	return &Store{
		endpoint: strings.TrimRight(config.BaseURL, "/") + "/wishlist",
		resolver: config.Resolver,
		client:   config.Client,
		pub:      config.Publisher,
		logger:   config.Logger.WithScope("wishlist"),
		metrics:  config.Metrics,
	}
}

// ownerBody is the mutation request body. The unused identity field is an
// explicit null on the wire.
type ownerBody struct {
	UserID    *string `json:"user_id"`
	SessionID *string `json:"session_id"`
	ProductID string  `json:"product_id,omitempty"`
	ClearAll  bool    `json:"clear_all,omitempty"`
}

func (s *Store) owner(ctx context.Context) ownerBody {
	id := s.resolver.Resolve(ctx)
	body := ownerBody{}
	if id.UserID != "" {
		body.UserID = &id.UserID
	} else if id.SessionID != "" {
		body.SessionID = &id.SessionID
	}
	return body
}

// List fetches the authoritative wishlist and refreshes the local mirror.
// A new List aborts any in-flight predecessor; the aborted call returns the
// current mirror rather than an error. Transport failures resolve to an
// empty slice, never to an error the UI must handle.
func (s *Store) List(ctx context.Context) []Entry {
	s.listMu.Lock()
	if s.cancelList != nil {
		s.cancelList()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelList = cancel
	s.listMu.Unlock()
	defer cancel()

	url := s.endpoint
	if key, value := s.resolver.Resolve(ctx).Owner(); key != "" {
		url += "?" + key + "=" + value
	}

	var response struct {
		Wishlist []Entry `json:"wishlist"`
	}
	if err := s.client.Get(ctx, url, &response); err != nil {
		if ctx.Err() != nil {
			// Superseded or abandoned query: benign, keep the mirror.
			return s.Entries()
		}
		s.metrics.RecordRemoteError(ctx, "wishlist.list")
		s.logger.Warn(ctx, "wishlist fetch failed, serving empty list", observe.Err(err))
		return []Entry{}
	}

	entries := response.Wishlist
	if entries == nil {
		entries = []Entry{}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	return s.Entries()
}

// Add sends the product to the remote wishlist. The mirror is updated and
// subscribers are notified only on a confirmed success; a 409 yields a
// conflict Result without touching local state.
func (s *Store) Add(ctx context.Context, product Product) Result {
	if product.ID == "" {
		return Result{Err: ErrMissingProduct}
	}

	body := s.owner(ctx)
	body.ProductID = product.ID

	var response struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := s.client.DoJSON(ctx, http.MethodPost, s.endpoint, body, &response); err != nil {
		if httpx.IsStatus(err, http.StatusConflict) {
			return Result{Err: ErrAlreadyInWishlist}
		}
		return s.failure(ctx, "wishlist.add", err)
	}
	if !response.Success {
		return Result{Err: remoteError(response.Error)}
	}

	s.mu.Lock()
	if s.findLocked(product.ID) < 0 {
		s.entries = append(s.entries, Entry{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Platform: product.Platform,
			Genres:   product.Genres,
			ImageRef: product.ImageRef,
		})
	}
	s.mu.Unlock()

	s.commit(ctx, "add")
	return Result{Success: true}
}

// Remove deletes the product from the remote wishlist, then from the mirror.
func (s *Store) Remove(ctx context.Context, productID string) Result {
	if productID == "" {
		return Result{Err: ErrMissingProduct}
	}

	body := s.owner(ctx)
	body.ProductID = productID

	var response struct {
		Success      bool   `json:"success"`
		DeletedCount int    `json:"deletedCount"`
		Error        string `json:"error"`
	}
	if err := s.client.DoJSON(ctx, http.MethodDelete, s.endpoint, body, &response); err != nil {
		return s.failure(ctx, "wishlist.remove", err)
	}
	if !response.Success {
		return Result{Err: remoteError(response.Error)}
	}

	s.mu.Lock()
	if i := s.findLocked(productID); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
	s.mu.Unlock()

	s.commit(ctx, "remove")
	return Result{Success: true, DeletedCount: response.DeletedCount}
}

// Clear deletes every entry owned by the active identity.
func (s *Store) Clear(ctx context.Context) Result {
	body := s.owner(ctx)
	body.ClearAll = true

	var response struct {
		Success      bool   `json:"success"`
		DeletedCount int    `json:"deletedCount"`
		Error        string `json:"error"`
	}
	if err := s.client.DoJSON(ctx, http.MethodDelete, s.endpoint, body, &response); err != nil {
		return s.failure(ctx, "wishlist.clear", err)
	}
	if !response.Success {
		return Result{Err: remoteError(response.Error)}
	}

	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()

	s.commit(ctx, "clear")
	return Result{Success: true, DeletedCount: response.DeletedCount}
}

// Entries returns the confirmed mirror without a network call.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Contains reports whether the product is in the confirmed mirror. Callers
// implement toggling as: Contains ? Remove : Add.
func (s *Store) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(productID) >= 0
}

// Count returns the number of mirrored entries.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) findLocked(productID string) int {
	for i := range s.entries {
		if s.entries[i].ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) failure(ctx context.Context, op string, err error) Result {
	s.metrics.RecordRemoteError(ctx, op)
	s.logger.Warn(ctx, "wishlist call failed", observe.String("op", op), observe.Err(err))
	return Result{Err: errors.Join(ErrUnavailable, err)}
}

func (s *Store) commit(ctx context.Context, op string) {
	s.metrics.RecordMutation(ctx, bus.TopicWishlist, op)
	s.pub.Publish(bus.TopicWishlist)
}

// remoteError wraps a server-provided error message for a 2xx response with
// success=false.
func remoteError(message string) error {
	if message == "" {
		return ErrUnavailable
	}
	return errors.New("wishlist: " + message)
}
