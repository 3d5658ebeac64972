// Package worker provides an asynchronous worker pool for publishing
// prediction events to the configured eventstream.Publisher.
//
// The pool decouples event publishing from the api's HTTP hot path so that a
// slow or unavailable broker never delays saving a prediction.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/eventstream"
	"github.com/papercomputeco/churnsense/pkg/metrics"
)

var (
	defaultNumWorkers     uint = 3
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 15 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Prediction *churn.Prediction
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives an event for every saved prediction.
	Publisher eventstream.Publisher

	// Service names the emitting service in event sources.
	Service string

	// Metrics is optional.
	Metrics *metrics.Metrics

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each publish (defaults to 15s).
	PublishTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes prediction events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Prediction == nil {
		p.logger.Error("job not queued, nil prediction")
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("job not queued, pool closed, job dropped",
			"prediction_id", job.Prediction.ID,
		)
		p.config.Metrics.EventPublished(metrics.OutcomeDropped)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"prediction_id", job.Prediction.ID,
			"risk_level", job.Prediction.RiskLevel,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"prediction_id", job.Prediction.ID,
			"risk_level", job.Prediction.RiskLevel,
		)
		p.config.Metrics.EventPublished(metrics.OutcomeDropped)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain, then
// closes the publisher. Call this during graceful shutdown after the HTTP
// server has stopped. Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob builds the prediction event and publishes it. Failures are
// logged and counted, never retried.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	event := eventstream.NewPredictionSavedEvent(p.config.Service, job.Prediction, time.Now())

	if err := p.config.Publisher.PublishPrediction(ctx, event); err != nil {
		p.logger.Error("prediction event publish failed",
			"prediction_id", job.Prediction.ID,
			"event_id", event.EventID,
			"error", err,
		)
		p.config.Metrics.EventPublished(metrics.OutcomeErrored)
		return
	}

	p.logger.Info("prediction event published",
		"prediction_id", job.Prediction.ID,
		"event_id", event.EventID,
		"risk_level", job.Prediction.RiskLevel,
	)
	p.config.Metrics.EventPublished(metrics.OutcomeOK)
}
