package bus

import (
	"sync"

	"github.com/google/uuid"
)

// Topics published by the built-in stores.
const (
	TopicCart     = "cart"
	TopicWishlist = "wishlist"
)

// Publisher is the notification surface stores publish committed mutations
// on. *Bus satisfies it for same-tab delivery; *Watcher satisfies it with
// cross-tab propagation added.
type Publisher interface {
	Publish(topic string)
}

// Bus is an in-process publish/subscribe registry keyed by topic.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: within one publisher goroutine, callbacks run in publish order.
// - Delivery: every live subscription is invoked exactly once per Publish.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[string]func()
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[string]func())}
}

// Subscribe registers a callback for a topic and returns its disposer.
// The disposer is idempotent.
func (b *Bus) Subscribe(topic string, callback func()) (unsubscribe func()) {
	token := uuid.NewString()

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]func())
	}
	b.subs[topic][token] = callback
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[topic], token)
		b.mu.Unlock()
	}
}

// Publish invokes every live subscriber of the topic. Subscribers carry no
// payload: they re-pull state from the owning store. Callbacks run outside
// the registry lock so they may subscribe or unsubscribe freely.
func (b *Bus) Publish(topic string) {
	b.mu.RLock()
	callbacks := make([]func(), 0, len(b.subs[topic]))
	for _, cb := range b.subs[topic] {
		callbacks = append(callbacks, cb)
	}
	b.mu.RUnlock()

	for _, cb := range callbacks {
		cb()
	}
}

// SubscriberCount returns the number of live subscriptions for a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Ensure Bus implements Publisher
var _ Publisher = (*Bus)(nil)
