package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sedirimou/gameva/httpx"
	"github.com/sedirimou/gameva/kv"
)

const probeKey = "health:probe"

// StorageChecker verifies the durable key-value store with a write-read-delete
// round trip.
type StorageChecker struct {
	store kv.Store
}

// NewStorageChecker creates a storage checker.
func NewStorageChecker(store kv.Store) *StorageChecker {
	return &StorageChecker{store: store}
}

// Name returns "storage".
func (c *StorageChecker) Name() string {
	return "storage"
}

// Check round-trips a probe value through the store.
func (c *StorageChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	probe := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := c.store.Set(probeKey, []byte(probe)); err != nil {
		return Unhealthy("storage write failed", err)
	}

	raw, ok, err := c.store.Get(probeKey)
	if err != nil {
		return Unhealthy("storage read failed", err)
	}
	_ = c.store.Delete(probeKey)

	if !ok {
		// A dropped write means an unpersisted context, not a fault: state
		// survives in memory for this tab only.
		return Result{
			Status:    StatusDegraded,
			Message:   "storage drops writes, state is tab-local",
			Timestamp: time.Now(),
		}
	}
	if string(raw) != probe {
		return Unhealthy("storage returned stale probe", nil)
	}
	return Healthy("storage round trip ok")
}

// RemoteChecker verifies the storefront API is reachable.
type RemoteChecker struct {
	url    string
	client *httpx.Client
}

// NewRemoteChecker creates a checker probing the given URL. A nil client
// uses httpx defaults.
func NewRemoteChecker(url string, client *httpx.Client) *RemoteChecker {
	if client == nil {
		client = httpx.NewClient(httpx.Config{})
	}
	return &RemoteChecker{url: url, client: client}
}

// Name returns "remote".
func (c *RemoteChecker) Name() string {
	return "remote"
}

// Check issues a GET against the probe URL. Any 2xx is healthy.
func (c *RemoteChecker) Check(ctx context.Context) Result {
	if err := c.client.Get(ctx, c.url, nil); err != nil {
		return Unhealthy(fmt.Sprintf("GET %s failed", c.url), err)
	}
	return Healthy("remote api reachable")
}

// Ensure checkers implement Checker
var (
	_ Checker = (*StorageChecker)(nil)
	_ Checker = (*RemoteChecker)(nil)
)
