package identity

import (
	"context"
	"crypto/rand"
	"strconv"
	"sync"
	"time"

	"github.com/sedirimou/gameva/kv"
	"github.com/sedirimou/gameva/observe"
)

// SessionKey is the storage key holding the persisted session identifier.
const SessionKey = "session:id"

const sessionPrefix = "sess_"

// UserProvider supplies the authenticated user identifier, if any.
// Returning ("", nil) means no user is signed in.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a provider error is treated as "no user", never as fatal.
type UserProvider interface {
	UserID(ctx context.Context) (string, error)
}

// UserProviderFunc adapts a function to the UserProvider interface.
type UserProviderFunc func(ctx context.Context) (string, error)

// UserID calls the wrapped function.
func (f UserProviderFunc) UserID(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticUser returns a provider that always reports the given user ID.
func StaticUser(userID string) UserProvider {
	return UserProviderFunc(func(context.Context) (string, error) {
		return userID, nil
	})
}

// ResolverConfig configures the Resolver.
type ResolverConfig struct {
	// Store persists the session identifier.
	// Default: kv.Null (unpersisted anonymous contexts).
	Store kv.Store

	// Users supplies the authenticated user ID.
	// Default: no user.
	Users UserProvider

	// Logger receives diagnostic output.
	// Default: discard.
	Logger observe.Logger

	// Now is the clock used for session minting. Tests override it.
	Now func() time.Time
}

// Resolver derives the active identity. The session ID is minted once and
// persisted for the lifetime of the browser profile; Clear removes it so the
// next Resolve mints a fresh one.
type Resolver struct {
	store  kv.Store
	users  UserProvider
	logger observe.Logger
	now    func() time.Time

	mu sync.Mutex // serializes minting
}

// NewResolver creates a resolver, applying defaults.
func NewResolver(config ResolverConfig) *Resolver {
	if config.Store == nil {
		config.Store = kv.NewNull()
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Resolver{
		store:  config.Store,
		users:  config.Users,
		logger: config.Logger.WithScope("identity"),
		now:    config.Now,
	}
}

// Resolve returns the active identity. The persisted session ID is returned
// if present; otherwise one is minted and persisted. When storage drops
// writes (no-storage context), the identity comes back empty and callers
// proceed as anonymous/unpersisted. Never calls the network.
func (r *Resolver) Resolve(ctx context.Context) Identity {
	id := Identity{SessionID: r.sessionID(ctx)}

	if r.users != nil {
		userID, err := r.users.UserID(ctx)
		if err != nil {
			r.logger.Debug(ctx, "user provider unavailable", observe.Err(err))
		} else {
			id.UserID = userID
		}
	}

	return id
}

// Clear removes the persisted session identifier (logout). The next Resolve
// mints a fresh one.
func (r *Resolver) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(SessionKey); err != nil {
		r.logger.Warn(ctx, "clear session failed", observe.Err(err))
		return err
	}
	return nil
}

func (r *Resolver) sessionID(ctx context.Context) string {
	if raw, ok, err := r.store.Get(SessionKey); err == nil && ok {
		return string(raw)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock: another goroutine may have minted meanwhile.
	if raw, ok, err := r.store.Get(SessionKey); err == nil && ok {
		return string(raw)
	}

	minted := sessionPrefix + strconv.FormatInt(r.now().UnixMilli(), 10) + "_" + randomBase36(9)
	if err := r.store.Set(SessionKey, []byte(minted)); err != nil {
		r.logger.Warn(ctx, "persist session failed", observe.Err(err))
		return ""
	}

	// A store that drops writes (kv.Null) means this context has no durable
	// identity; report unpersisted rather than handing out a fresh ID per call.
	if _, ok, err := r.store.Get(SessionKey); err != nil || !ok {
		return ""
	}

	return minted
}

// randomBase36 returns n random base36 characters.
func randomBase36(n int) string {
	const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unreachable; degrade to a
		// time-derived suffix rather than panicking.
		ts := strconv.FormatInt(time.Now().UnixNano(), 36)
		for len(ts) < n {
			ts += ts
		}
		return ts[:n]
	}

	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf)
}
