// Package storage defines how churn predictions are persisted and queried.
package storage

import (
	"context"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

// Driver defines the interface for persisting and retrieving predictions in a
// storage backend.
type Driver interface {
	// Put stores a prediction. Putting an existing ID replaces the record.
	Put(ctx context.Context, p *churn.Prediction) error

	// Get retrieves a prediction by its ID. Returns NotFoundError when the
	// prediction does not exist.
	Get(ctx context.Context, id string) (*churn.Prediction, error)

	// List returns the predictions matching q, sorted and limited per q.
	// The query is normalized by the driver before use.
	List(ctx context.Context, q Query) ([]*churn.Prediction, error)

	// Delete removes a prediction by its ID. Returns NotFoundError when the
	// prediction does not exist.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
