// Package service provides business logic for the application.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/store"
)

// ErrStore wraps every failure of the underlying key-value store,
// including persisted data that cannot be decoded.
var ErrStore = errors.New("store failure")

// collection persists a whole entity family as one JSON array under a
// single store key. Every read and every read-modify-write cycle holds mu,
// so mutations through the same collection never interleave.
type collection[T any] struct {
	key     string
	store   store.Store
	metrics metrics.Recorder
	mu      sync.Mutex

	// afterSave, when set, runs after every successful write with mu
	// still held.
	afterSave func(ctx context.Context, items []T)
}

func newCollection[T any](key string, st store.Store, recorder metrics.Recorder) *collection[T] {
	return &collection[T]{key: key, store: st, metrics: recorder}
}

// read returns a freshly decoded copy of the collection.
func (c *collection[T]) read(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// update loads the collection, hands it to fn and writes the result back
// when fn reports a change. An error from fn aborts the cycle unwritten.
func (c *collection[T]) update(ctx context.Context, fn func(items []T) ([]T, bool, error)) ([]T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return nil, false, err
	}

	items, changed, err := fn(items)
	if err != nil || !changed {
		return items, false, err
	}

	if err := c.save(ctx, items); err != nil {
		return nil, false, err
	}
	if c.afterSave != nil {
		c.afterSave(ctx, items)
	}
	return items, true, nil
}

func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	start := time.Now()
	raw, found, err := c.store.Get(ctx, c.key)
	c.metrics.ObserveStoreDuration(time.Since(start))
	if err != nil {
		c.metrics.IncStoreError(c.key)
		return nil, fmt.Errorf("%w: read %s: %v", ErrStore, c.key, err)
	}

	items := make([]T, 0)
	if !found || raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.metrics.IncStoreError(c.key)
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStore, c.key, err)
	}
	return items, nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = make([]T, 0)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStore, c.key, err)
	}

	start := time.Now()
	err = c.store.Set(ctx, c.key, string(data))
	c.metrics.ObserveStoreDuration(time.Since(start))
	if err != nil {
		c.metrics.IncStoreError(c.key)
		return fmt.Errorf("%w: write %s: %v", ErrStore, c.key, err)
	}
	return nil
}
