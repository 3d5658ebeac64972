// Package inmemory provides a map-backed storage driver for tests and
// ephemeral servers.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of predictions
	mu sync.RWMutex

	// predictions is keyed by prediction ID. Values are private copies.
	predictions map[string]*churn.Prediction
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		predictions: make(map[string]*churn.Prediction),
	}
}

// Put stores a copy of p, replacing any prediction with the same ID.
func (s *Driver) Put(_ context.Context, p *churn.Prediction) error {
	if p == nil {
		return storage.ErrNilPrediction
	}

	cp := *p

	s.mu.Lock()
	defer s.mu.Unlock()

	s.predictions[p.ID] = &cp
	return nil
}

// Get retrieves a prediction by its ID.
func (s *Driver) Get(_ context.Context, id string) (*churn.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.predictions[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	cp := *p
	return &cp, nil
}

// List returns copies of the predictions matching q.
func (s *Driver) List(_ context.Context, q storage.Query) ([]*churn.Prediction, error) {
	s.mu.RLock()
	all := make([]*churn.Prediction, 0, len(s.predictions))
	for _, p := range s.predictions {
		cp := *p
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	return q.Apply(all), nil
}

// Delete removes a prediction by its ID.
func (s *Driver) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.predictions[id]; !ok {
		return storage.NotFoundError{ID: id}
	}

	delete(s.predictions, id)
	return nil
}

// Count returns the number of stored predictions.
func (s *Driver) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.predictions)
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}
