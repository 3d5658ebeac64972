package proxy

import (
	"time"

	"github.com/papercomputeco/churnsense/pkg/metrics"
)

// DefaultGatewayURL is the chat completions endpoint of the model gateway.
const DefaultGatewayURL = "https://ai.gateway.lovable.dev/v1/chat/completions"

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// InferenceURL is the churn model API (e.g., "http://localhost:8000")
	InferenceURL string

	// InferenceTimeout bounds each inference request.
	InferenceTimeout time.Duration

	// GatewayURL is the chat completions endpoint. Defaults to DefaultGatewayURL.
	GatewayURL string

	// GatewayAPIKey authenticates against the gateway. Chat requests fail
	// with a 500 while it is empty.
	GatewayAPIKey string

	// GatewayModel is the model requested from the gateway.
	GatewayModel string

	// AllowOrigins is the CORS allow list. Defaults to "*".
	AllowOrigins string

	// Metrics is optional.
	Metrics *metrics.Metrics
}
