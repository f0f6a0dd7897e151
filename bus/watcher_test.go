package bus

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sedirimou/gameva/kv"
)

// waitFor polls until check passes or the deadline expires.
func waitFor(t *testing.T, d time.Duration, check func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return check()
}

func TestWatcher_PropagatesAcrossTabs(t *testing.T) {
	shared := kv.NewMemory()

	// Two watchers over the same store stand in for two tabs.
	tabA := NewWatcher(WatcherConfig{Store: shared, Interval: 10 * time.Millisecond})
	busB := New()
	tabB := NewWatcher(WatcherConfig{Store: shared, Bus: busB, Interval: 10 * time.Millisecond})
	tabB.Start()
	defer tabB.Stop()

	var notified atomic.Int32
	busB.Subscribe(TopicCart, func() { notified.Add(1) })

	// Mutation committed in tab A.
	tabA.Publish(TopicCart)

	if !waitFor(t, time.Second, func() bool { return notified.Load() >= 1 }) {
		t.Fatal("tab B was never notified of tab A's mutation")
	}
}

func TestWatcher_OwnMutationsNotRedelivered(t *testing.T) {
	shared := kv.NewMemory()
	b := New()
	w := NewWatcher(WatcherConfig{Store: shared, Bus: b, Interval: 10 * time.Millisecond})
	w.Start()
	defer w.Stop()

	var calls atomic.Int32
	b.Subscribe(TopicCart, func() { calls.Add(1) })

	w.Publish(TopicCart)

	// The synchronous delivery fires once; the poll loop must not add a
	// second delivery for our own revision.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("subscriber fired %d times for one same-tab mutation, want 1", got)
	}
}

func TestWatcher_PreexistingRevisionNotDelivered(t *testing.T) {
	shared := kv.NewMemory()
	if err := shared.Set(RevisionKey(TopicCart), []byte("earlier-tab|123")); err != nil {
		t.Fatalf("seed revision: %v", err)
	}

	b := New()
	w := NewWatcher(WatcherConfig{Store: shared, Bus: b, Interval: 10 * time.Millisecond})

	var calls atomic.Int32
	b.Subscribe(TopicCart, func() { calls.Add(1) })

	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("revisions committed before Start should not be delivered")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(WatcherConfig{Store: kv.NewMemory(), Interval: 10 * time.Millisecond})
	w.Start()
	w.Stop()
	w.Stop()
}

func TestWatcher_PublishWithoutStartStillDeliversLocally(t *testing.T) {
	b := New()
	w := NewWatcher(WatcherConfig{Store: kv.NewNull(), Bus: b})

	var calls atomic.Int32
	b.Subscribe(TopicWishlist, func() { calls.Add(1) })

	w.Publish(TopicWishlist)
	if calls.Load() != 1 {
		t.Errorf("same-tab delivery fired %d times, want 1", calls.Load())
	}
}
