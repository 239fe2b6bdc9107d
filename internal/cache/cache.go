// Package cache provides the rendered-listing cache used by the task
// service. Entries live until a mutation invalidates them, with an
// optional TTL as a secondary bound.
package cache

import "context"

// Producer builds a fresh rendering when the cache has no entry.
type Producer func(ctx context.Context) ([]byte, error)

// ListCache memoizes rendered task listings by key. Implementations are
// cache-aside: a backend failure degrades to producing fresh results
// and never fails the request.
type ListCache interface {
	// GetOrPopulate returns the cached rendering for key if present,
	// otherwise invokes produce, stores the result and returns it.
	GetOrPopulate(ctx context.Context, key string, produce Producer) ([]byte, error)

	// Invalidate drops the entry for key.
	Invalidate(ctx context.Context, key string)

	// InvalidateAll drops every cached listing. Called on any task
	// mutation: invalidation is deliberately coarse-grained.
	InvalidateAll(ctx context.Context)
}
