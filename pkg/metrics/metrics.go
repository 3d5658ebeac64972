// Package metrics exposes the Prometheus collectors shared by the proxy and
// api servers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "churnsense"

// Outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
	OutcomeCompleted      = "completed"
	OutcomeErrored        = "errored"
	OutcomeRejected       = "rejected"
	OutcomeDropped        = "dropped"
)

// Upstream label values.
const (
	UpstreamInference = "inference"
	UpstreamGateway   = "gateway"
)

// Metrics holds the collectors of one server, registered on a private
// registry. All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	predictionsRequested *prometheus.CounterVec
	predictionsSaved     *prometheus.CounterVec
	chatStreams          *prometheus.CounterVec
	chatFragments        prometheus.Counter
	eventsPublished      *prometheus.CounterVec
	upstreamDuration     *prometheus.HistogramVec
}

// New creates and registers the collectors, along with the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		predictionsRequested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_requested_total",
				Help:      "Prediction requests forwarded to the inference endpoint, by outcome.",
			},
			[]string{"outcome"},
		),
		predictionsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_saved_total",
				Help:      "Predictions persisted, by risk level.",
			},
			[]string{"risk_level"},
		),
		chatStreams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chat",
				Name:      "streams_total",
				Help:      "Chat streams relayed from the language model gateway, by outcome.",
			},
			[]string{"outcome"},
		),
		chatFragments: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chat",
				Name:      "fragments_total",
				Help:      "Text fragments assembled from chat streams.",
			},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventstream",
				Name:      "events_total",
				Help:      "Prediction events handed to the publisher, by outcome.",
			},
			[]string{"outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of upstream requests until response headers arrive.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"upstream", "status"},
		),
	}

	reg.MustRegister(
		m.predictionsRequested,
		m.predictionsSaved,
		m.chatStreams,
		m.chatFragments,
		m.eventsPublished,
		m.upstreamDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// PredictionRequested counts a forwarded prediction request.
func (m *Metrics) PredictionRequested(outcome string) {
	if m == nil {
		return
	}
	m.predictionsRequested.WithLabelValues(outcome).Inc()
}

// PredictionSaved counts a persisted prediction.
func (m *Metrics) PredictionSaved(riskLevel string) {
	if m == nil {
		return
	}
	m.predictionsSaved.WithLabelValues(riskLevel).Inc()
}

// ChatStream counts a finished chat stream.
func (m *Metrics) ChatStream(outcome string) {
	if m == nil {
		return
	}
	m.chatStreams.WithLabelValues(outcome).Inc()
}

// ChatFragments adds n assembled fragments.
func (m *Metrics) ChatFragments(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chatFragments.Add(float64(n))
}

// EventPublished counts an event handed to the publisher.
func (m *Metrics) EventPublished(outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of an upstream request. Status is the
// HTTP status code, or 0 when no response arrived.
func (m *Metrics) ObserveUpstream(upstream string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(upstream, statusLabel(status)).Observe(d.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status <= 0:
		return "none"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
