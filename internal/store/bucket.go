package store

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

const bucketTimeout = 5 * time.Second

// Bucket is a Store bound to a single scope. It satisfies counter.Store and
// counter.Incrementer. Rows are stamped with the bucket's clock so simulated
// runs write simulated times.
type Bucket struct {
	store *Store
	scope string
	clock clock.Clock
}

// Bucket returns a view of the store restricted to scope. A nil clk uses the
// wall clock.
func (s *Store) Bucket(scope string, clk clock.Clock) *Bucket {
	if clk == nil {
		clk = clock.New()
	}
	return &Bucket{store: s, scope: scope, clock: clk}
}

// Scope returns the bucket's scope name.
func (b *Bucket) Scope() string {
	return b.scope
}

// Get returns the value for key within the bucket's scope.
func (b *Bucket) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bucketTimeout)
	defer cancel()
	return b.store.Get(ctx, b.scope, key)
}

// Set writes value for key within the bucket's scope.
func (b *Bucket) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), bucketTimeout)
	defer cancel()
	return b.store.Set(ctx, b.scope, key, value, b.clock.Now())
}

// Increment bumps the integer at key in one transaction.
func (b *Bucket) Increment(key string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bucketTimeout)
	defer cancel()
	return b.store.Increment(ctx, b.scope, key, b.clock.Now())
}
