package xcache

import (
	"context"
)

// NewDiscard returns a new cache implementation which discards all operations.
func NewDiscard[T any]() Cache[T] {
	return discardCacheImpl[T]{}
}

type discardCacheImpl[T any] struct{}

// Get always misses.
func (s discardCacheImpl[T]) Get(_ context.Context, _ string, _ ...Option[T]) (T, bool) {
	var zero T
	return zero, false
}

// Set discards the value.
func (s discardCacheImpl[T]) Set(_ context.Context, _ string, _ T, _ ...Option[T]) {
}

// Delete is a no-op.
func (s discardCacheImpl[T]) Delete(_ context.Context, _ string) {
}
