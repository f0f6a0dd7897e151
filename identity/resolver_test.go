package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sedirimou/gameva/kv"
)

func TestResolver_MintsAndPersists(t *testing.T) {
	store := kv.NewMemory()
	resolver := NewResolver(ResolverConfig{
		Store: store,
		Now:   func() time.Time { return time.UnixMilli(1700000000000) },
	})
	ctx := context.Background()

	id := resolver.Resolve(ctx)
	if id.SessionID == "" {
		t.Fatal("Resolve should mint a session ID")
	}
	if !strings.HasPrefix(id.SessionID, "sess_1700000000000_") {
		t.Errorf("SessionID = %q, want sess_1700000000000_<suffix>", id.SessionID)
	}
	if suffix := strings.TrimPrefix(id.SessionID, "sess_1700000000000_"); len(suffix) != 9 {
		t.Errorf("random suffix %q should be 9 characters", suffix)
	}

	raw, ok, err := store.Get(SessionKey)
	if err != nil || !ok {
		t.Fatalf("session should be persisted, got (%v, %v)", ok, err)
	}
	if string(raw) != id.SessionID {
		t.Errorf("persisted %q, resolved %q", raw, id.SessionID)
	}
}

func TestResolver_Stability(t *testing.T) {
	resolver := NewResolver(ResolverConfig{Store: kv.NewMemory()})
	ctx := context.Background()

	first := resolver.Resolve(ctx)
	second := resolver.Resolve(ctx)
	if first.SessionID != second.SessionID {
		t.Errorf("Resolve is not stable: %q then %q", first.SessionID, second.SessionID)
	}

	if err := resolver.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	third := resolver.Resolve(ctx)
	if third.SessionID == "" {
		t.Fatal("Resolve after Clear should mint")
	}
	if third.SessionID == first.SessionID {
		t.Error("Resolve after Clear should mint a different session ID")
	}
}

func TestResolver_UserWins(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Store: kv.NewMemory(),
		Users: StaticUser("user-7"),
	})

	id := resolver.Resolve(context.Background())
	if id.UserID != "user-7" {
		t.Errorf("UserID = %q, want user-7", id.UserID)
	}
	if id.IsAnonymous() {
		t.Error("identity with a user should not be anonymous")
	}

	key, value := id.Owner()
	if key != "user_id" || value != "user-7" {
		t.Errorf("Owner() = (%q, %q), want (user_id, user-7)", key, value)
	}
}

func TestResolver_AnonymousOwner(t *testing.T) {
	resolver := NewResolver(ResolverConfig{Store: kv.NewMemory()})

	id := resolver.Resolve(context.Background())
	key, value := id.Owner()
	if key != "session_id" || value != id.SessionID {
		t.Errorf("Owner() = (%q, %q), want (session_id, %q)", key, value, id.SessionID)
	}
}

func TestResolver_UserProviderErrorIsAnonymous(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Store: kv.NewMemory(),
		Users: UserProviderFunc(func(context.Context) (string, error) {
			return "", errors.New("auth collaborator down")
		}),
	})

	id := resolver.Resolve(context.Background())
	if id.UserID != "" {
		t.Errorf("provider errors should degrade to anonymous, got user %q", id.UserID)
	}
	if id.SessionID == "" {
		t.Error("session resolution should proceed despite the provider error")
	}
}

func TestResolver_NoStorageContext(t *testing.T) {
	resolver := NewResolver(ResolverConfig{Store: kv.NewNull()})

	id := resolver.Resolve(context.Background())
	if !id.IsZero() {
		t.Errorf("no-storage context should yield a zero identity, got %+v", id)
	}

	key, value := id.Owner()
	if key != "" || value != "" {
		t.Errorf("Owner() = (%q, %q), want empty", key, value)
	}
}

func TestResolver_ConcurrentResolveMintsOnce(t *testing.T) {
	resolver := NewResolver(ResolverConfig{Store: kv.NewMemory()})
	ctx := context.Background()

	const n = 32
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			ids <- resolver.Resolve(ctx).SessionID
		}()
	}

	first := <-ids
	for i := 1; i < n; i++ {
		if got := <-ids; got != first {
			t.Fatalf("concurrent Resolve minted distinct IDs: %q vs %q", first, got)
		}
	}
}
