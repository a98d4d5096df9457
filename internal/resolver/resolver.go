// Package resolver resolves and caches the task type a serving endpoint
// advertises.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"servingbridge/internal/contract"
)

// MetadataSource fetches the task type string an endpoint advertises.
type MetadataSource interface {
	GetTaskType(ctx context.Context, endpointID string) (string, error)
}

// ErrNoTaskType indicates the metadata source answered without a task type.
var ErrNoTaskType = errors.New("resolver: endpoint metadata has no task type")

// ResolutionError reports a failed task-type resolution. The task type is
// never guessed on failure; the error is surfaced to the caller as-is.
type ResolutionError struct {
	Endpoint string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolver: resolving task type for endpoint %q: %v", e.Endpoint, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

type cacheEntry struct {
	taskType   contract.TaskType
	resolvedAt time.Time
}

// Resolver caches resolved task types per endpoint. By default an entry
// never expires: an endpoint's task type is fixed at deployment, so a
// resolved value is trusted until Invalidate is called. WithTTL opts into
// expiry for long-lived processes that must notice redeployed endpoints.
//
// Concurrent first resolutions for the same endpoint share one in-flight
// metadata query; cached reads take only a read lock.
type Resolver struct {
	source MetadataSource
	ttl    time.Duration
	mu     sync.RWMutex
	cache  map[string]cacheEntry
	sf     singleflight.Group
}

// New creates a Resolver backed by the given metadata source.
// Panics if source is nil.
func New(source MetadataSource, opts ...Option) *Resolver {
	if source == nil {
		panic("resolver: MetadataSource must not be nil")
	}
	r := &Resolver{
		source: source,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) entryValid(ent cacheEntry, now time.Time) bool {
	return r.ttl <= 0 || now.Before(ent.resolvedAt.Add(r.ttl))
}

// Resolve returns the task type endpointID advertises. The metadata source
// is queried at most once per endpoint while a cache entry is valid. A
// caller abandoning the wait does not abort the shared query: remaining
// waiters still get the result and the cache entry is still written.
func (r *Resolver) Resolve(ctx context.Context, endpointID string) (contract.TaskType, error) {
	r.mu.RLock()
	ent, ok := r.cache[endpointID]
	r.mu.RUnlock()
	if ok && r.entryValid(ent, time.Now()) {
		return ent.taskType, nil
	}

	ch := r.sf.DoChan(endpointID, func() (any, error) {
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		tt, err := r.fetch(fetchCtx, endpointID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[endpointID] = cacheEntry{taskType: tt, resolvedAt: time.Now()}
		r.mu.Unlock()
		return tt, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(contract.TaskType), nil
	}
}

func (r *Resolver) fetch(ctx context.Context, endpointID string) (contract.TaskType, error) {
	raw, err := r.source.GetTaskType(ctx, endpointID)
	if err != nil {
		return "", &ResolutionError{Endpoint: endpointID, Err: err}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ResolutionError{Endpoint: endpointID, Err: ErrNoTaskType}
	}
	tt := contract.TaskType(raw)
	slog.Debug("resolver.resolved", "endpoint", endpointID, "task_type", raw, "supported", contract.Supported(tt))
	return tt, nil
}

// Invalidate drops the cached task type for one endpoint, forcing the next
// Resolve to query the metadata source again. Safe for concurrent use.
func (r *Resolver) Invalidate(endpointID string) {
	r.mu.Lock()
	delete(r.cache, endpointID)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache. Safe for concurrent use.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}

// detachCancel returns a context that survives cancellation of parent but
// keeps its deadline, so an abandoned caller does not abort a query other
// waiters share. The returned cancel releases the deadline timer.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}
