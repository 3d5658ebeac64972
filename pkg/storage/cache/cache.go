// Package cache wraps a storage.Driver with a read-through LRU cache of
// predictions keyed by ID.
package cache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
)

// DefaultSize is the number of predictions kept when no size is given.
const DefaultSize = 512

// Driver caches Get results of the wrapped driver. Writes go through to the
// wrapped driver first and update the cache only on success.
//
// mu orders cache misses against writes: a miss holds the read lock while it
// reads the wrapped driver and fills the cache, Put and Delete hold the write
// lock, so a fill never re-adds a record a concurrent Delete removed.
type Driver struct {
	next  storage.Driver
	cache *lru.Cache[string, churn.Prediction]
	mu    sync.RWMutex
}

var _ storage.Driver = (*Driver)(nil)

// New wraps next with an LRU cache holding up to size predictions.
func New(next storage.Driver, size int) (*Driver, error) {
	if size <= 0 {
		size = DefaultSize
	}

	c, err := lru.New[string, churn.Prediction](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}

	return &Driver{next: next, cache: c}, nil
}

// Put stores p and caches it.
func (d *Driver) Put(ctx context.Context, p *churn.Prediction) error {
	if p == nil {
		return storage.ErrNilPrediction
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.next.Put(ctx, p); err != nil {
		return err
	}
	d.cache.Add(p.ID, *p)
	return nil
}

// Get serves p from the cache, falling back to the wrapped driver.
func (d *Driver) Get(ctx context.Context, id string) (*churn.Prediction, error) {
	if p, ok := d.cache.Get(id); ok {
		return &p, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	p, err := d.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Add(id, *p)
	return p, nil
}

// List always queries the wrapped driver.
func (d *Driver) List(ctx context.Context, q storage.Query) ([]*churn.Prediction, error) {
	return d.next.List(ctx, q)
}

// Delete removes the prediction from the wrapped driver, then from the cache.
func (d *Driver) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.next.Delete(ctx, id); err != nil {
		return err
	}
	d.cache.Remove(id)
	return nil
}

// Len returns the number of cached predictions.
func (d *Driver) Len() int {
	return d.cache.Len()
}

// Close purges the cache and closes the wrapped driver.
func (d *Driver) Close() error {
	d.cache.Purge()
	return d.next.Close()
}
