package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records state-layer metrics: store mutations, cache lookups and
// remote wishlist calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordMutation records a committed store mutation (add, remove, set).
	RecordMutation(ctx context.Context, store, op string)

	// RecordCacheLookup records a reference-data cache lookup.
	RecordCacheLookup(ctx context.Context, collection string, hit bool)

	// RecordRemoteError records a failed remote call.
	RecordRemoteError(ctx context.Context, op string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	mutations    metric.Int64Counter
	lookups      metric.Int64Counter
	remoteErrors metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	mutations, err := meter.Int64Counter(
		"storefront.store.mutations",
		metric.WithDescription("Committed store mutations"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"storefront.cache.lookups",
		metric.WithDescription("Reference-data cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	remoteErrors, err := meter.Int64Counter(
		"storefront.remote.errors",
		metric.WithDescription("Failed remote calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		mutations:    mutations,
		lookups:      lookups,
		remoteErrors: remoteErrors,
	}, nil
}

func (m *metricsImpl) RecordMutation(ctx context.Context, store, op string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("op", op),
	))
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, collection string, hit bool) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("collection", collection),
		attribute.Bool("hit", hit),
	))
}

func (m *metricsImpl) RecordRemoteError(ctx context.Context, op string) {
	m.remoteErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
	))
}

// nopMetrics discards every record.
type nopMetrics struct{}

func (nopMetrics) RecordMutation(context.Context, string, string)  {}
func (nopMetrics) RecordCacheLookup(context.Context, string, bool) {}
func (nopMetrics) RecordRemoteError(context.Context, string)       {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = nopMetrics{}
)
