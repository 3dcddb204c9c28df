package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/store"
)

var errUnavailable = errors.New("disk unavailable")

// flakyStore wraps a Memory store and fails reads or writes on demand.
type flakyStore struct {
	*store.Memory

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	failKey  string // empty means every key
	setCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: store.NewMemory()}
}

func (f *flakyStore) fails(key string, flag bool) bool {
	return flag && (f.failKey == "" || f.failKey == key)
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.fails(key, f.failGet)
	f.mu.Unlock()
	if fail {
		return "", false, errUnavailable
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	f.setCalls++
	fail := f.fails(key, f.failSet)
	f.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *flakyStore) setFailures(get, set bool, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet, f.failSet, f.failKey = get, set, key
}

func (f *flakyStore) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

// clock is a settable time source for services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
