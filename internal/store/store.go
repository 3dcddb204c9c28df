// Package store defines the string key-value contract the data services
// persist through, with in-memory and SQLite implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Keys used by the data services. One key per entity family.
const (
	KeyAnalytics        = "analytics"
	KeyAnalyticsSummary = "analytics_summary"
	KeyLeads            = "leads"
	KeyLeadCounter      = "lead_counter"
	KeySharedVideos     = "shared_videos"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
	// ErrKeysUnsupported is returned by ListKeys for stores that cannot
	// enumerate their keys.
	ErrKeysUnsupported = errors.New("store cannot list keys")
)

// Store is a durable string-keyed, string-valued store.
// Get reports found=false for a missing key rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// ListKeys returns the keys held by st in lexical order.
func ListKeys(ctx context.Context, st Store) ([]string, error) {
	if h, ok := st.(*Handle); ok {
		st = h.Store
	}
	lister, ok := st.(KeyLister)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrKeysUnsupported, st)
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}
