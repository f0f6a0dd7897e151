// Package health provides readiness checks for the state layer's two
// dependencies: durable storage and the remote storefront API. The host
// application surfaces the aggregate to decide whether to enable
// network-backed features or degrade to local-only behavior.
package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status represents the health of a dependency.
type Status int

const (
	// StatusHealthy indicates the dependency is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates reduced but working functionality.
	StatusDegraded
	// StatusUnhealthy indicates the dependency is unusable.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// ErrCheckerNotFound indicates an unknown checker name.
var ErrCheckerNotFound = errors.New("health: checker not found")

// Result contains the outcome of a check.
type Result struct {
	Status    Status
	Message   string
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// Checker is the interface for dependency checks.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Check must honor cancellation/deadlines.
// - Errors: failures are reported through Result, not panics.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// AggregatorConfig configures the aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 5 seconds
	Timeout time.Duration
}

// Aggregator runs registered checkers in parallel and combines results.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an aggregator, applying defaults.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Aggregator{
		config:   config,
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker. Re-registering a name replaces the checker.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := checker.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Check runs one named checker.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	return timed(ctx, checker), nil
}

// CheckAll runs every registered checker in parallel.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make([]Checker, 0, len(a.order))
	for _, name := range a.order {
		checkers = append(checkers, a.checkers[name])
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(checkers))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := timed(ctx, c)
			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return results
}

// Overall reduces a result set to the worst observed status.
func Overall(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		if r.Status > overall {
			overall = r.Status
		}
	}
	return overall
}

func timed(ctx context.Context, checker Checker) Result {
	start := time.Now()
	result := checker.Check(ctx)
	result.Duration = time.Since(start)
	return result
}
