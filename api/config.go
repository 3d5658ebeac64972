// Package api provides the HTTP API server for saving and browsing churn
// predictions.
package api

import (
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/pkg/worker"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// AllowOrigins is the CORS allow list. Defaults to "*".
	AllowOrigins string

	// Pool publishes an event for every saved prediction. Optional.
	Pool *worker.Pool

	// Metrics is optional. When set, GET /metrics serves its registry.
	Metrics *metrics.Metrics

	// DisableMCP turns off the /mcp endpoint.
	DisableMCP bool
}
