package bus

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sedirimou/gameva/kv"
	"github.com/sedirimou/gameva/observe"
)

// revPrefix namespaces the per-topic revision keys in shared storage.
const revPrefix = "rev:"

// RevisionKey returns the shared-storage key whose value changes whenever a
// tab commits a mutation on the topic.
func RevisionKey(topic string) string {
	return revPrefix + topic
}

// WatcherConfig configures the cross-tab Watcher.
type WatcherConfig struct {
	// Store is the shared storage polled for revision changes.
	Store kv.Store

	// Bus receives a Publish when a foreign revision change is observed.
	Bus *Bus

	// Topics lists the topics to watch.
	// Default: cart and wishlist.
	Topics []string

	// Interval is the polling interval, the substitute for the platform's
	// storage-change signal. Default: 250ms.
	Interval time.Duration

	// Logger receives diagnostic output. Default: discard.
	Logger observe.Logger
}

// Watcher propagates mutations across tabs. Publishing through the Watcher
// bumps an origin-tagged revision key in shared storage and then delivers
// same-tab; the polling loop publishes only revisions written by a different
// origin, so each tab sees every committed mutation exactly once.
type Watcher struct {
	store    kv.Store
	bus      *Bus
	topics   []string
	interval time.Duration
	logger   observe.Logger
	origin   string

	mu   sync.Mutex
	seen map[string]string

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher, applying defaults.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Store == nil {
		config.Store = kv.NewNull()
	}
	if config.Bus == nil {
		config.Bus = New()
	}
	if len(config.Topics) == 0 {
		config.Topics = []string{TopicCart, TopicWishlist}
	}
	if config.Interval <= 0 {
		config.Interval = 250 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Watcher{
		store:    config.Store,
		bus:      config.Bus,
		topics:   config.Topics,
		interval: config.Interval,
		logger:   config.Logger.WithScope("bus"),
		origin:   uuid.NewString(),
		seen:     make(map[string]string),
		done:     make(chan struct{}),
	}
}

// Publish bumps the topic's shared revision for other tabs, then delivers to
// same-tab subscribers synchronously.
func (w *Watcher) Publish(topic string) {
	rev := w.origin + "|" + strconv.FormatInt(time.Now().UnixNano(), 10)
	key := RevisionKey(topic)

	if err := w.store.Set(key, []byte(rev)); err != nil {
		w.logger.Warn(context.Background(), "bump revision failed",
			observe.String("topic", topic), observe.Err(err))
	} else {
		// Remember our own write so the poll loop does not re-deliver it.
		w.mu.Lock()
		w.seen[key] = rev
		w.mu.Unlock()
	}

	w.bus.Publish(topic)
}

// Start primes the revision snapshot and begins polling. Mutations committed
// before Start are treated as already seen.
func (w *Watcher) Start() {
	w.mu.Lock()
	for _, topic := range w.topics {
		key := RevisionKey(topic)
		if raw, ok, err := w.store.Get(key); err == nil && ok {
			w.seen[key] = string(raw)
		}
	}
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the polling loop and waits for it to exit. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	for _, topic := range w.topics {
		key := RevisionKey(topic)

		raw, ok, err := w.store.Get(key)
		if err != nil {
			w.logger.Warn(context.Background(), "poll revision failed",
				observe.String("topic", topic), observe.Err(err))
			continue
		}
		if !ok {
			continue
		}
		rev := string(raw)

		w.mu.Lock()
		changed := w.seen[key] != rev
		if changed {
			w.seen[key] = rev
		}
		w.mu.Unlock()

		if changed && !w.ownRevision(rev) {
			w.bus.Publish(topic)
		}
	}
}

// ownRevision reports whether a revision value was written by this tab.
func (w *Watcher) ownRevision(rev string) bool {
	origin, _, found := strings.Cut(rev, "|")
	return found && origin == w.origin
}

// Ensure Watcher implements Publisher
var _ Publisher = (*Watcher)(nil)
