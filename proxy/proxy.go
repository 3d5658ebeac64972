// Package proxy provides the churnsense edge proxy. It scores customers
// against the inference endpoint and relays ChurnBot chat streams from the
// model gateway while assembling each reply for logs and metrics.
package proxy

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/inference"
	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/proxy/header"
)

// ErrorResponse is the JSON body of every failed proxy request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	Prediction *inference.Result `json:"prediction"`
	Insights   []string          `json:"insights"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Inference *inference.Health `json:"inference,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Proxy is the edge proxy between the churnsense clients, the inference
// endpoint and the model gateway.
type Proxy struct {
	config        Config
	inference     *inference.Client
	metrics       *metrics.Metrics
	logger        *slog.Logger
	httpClient    *http.Client
	server        *fiber.App
	headerHandler *header.Handler
}

// New creates a new Proxy.
func New(config Config, log *slog.Logger) (*Proxy, error) {
	if config.ListenAddr == "" {
		return nil, errors.New("listen address is required")
	}
	if config.GatewayURL == "" {
		config.GatewayURL = DefaultGatewayURL
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowOrigins,
		AllowHeaders: "Authorization, X-Client-Info, Apikey, Content-Type, " + header.SessionHeader,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(compress.New())

	p := &Proxy{
		config: config,
		inference: inference.NewClient(inference.Config{
			BaseURL: config.InferenceURL,
			Timeout: config.InferenceTimeout,
			Metrics: config.Metrics,
		}),
		metrics:       config.Metrics,
		logger:        log,
		server:        app,
		headerHandler: header.NewHandler(),
		httpClient: &http.Client{
			// Chat replies stream for a while
			Timeout: 5 * time.Minute,
		},
	}

	app.Post("/predict", p.handlePredict)
	app.Post("/chat", p.handleChat)
	app.Get("/health", p.handleHealth)

	return p, nil
}

// App returns the underlying fiber app.
func (p *Proxy) App() *fiber.App {
	return p.server
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		"listen", p.config.ListenAddr,
		"inference", p.inference.BaseURL(),
		"gateway", p.config.GatewayURL,
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		"listen", listener.Addr().String(),
		"inference", p.inference.BaseURL(),
		"gateway", p.config.GatewayURL,
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the proxy.
func (p *Proxy) Close() error {
	return p.server.Shutdown()
}

// handlePredict forwards customer attributes to the inference endpoint.
func (p *Proxy) handlePredict(c *fiber.Ctx) error {
	var customer churn.Customer
	if err := c.BodyParser(&customer); err != nil {
		p.metrics.PredictionRequested(metrics.OutcomeRejected)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid customer payload"})
	}

	start := time.Now()
	result, err := p.inference.Predict(c.UserContext(), customer)
	if err != nil {
		var apiErr *inference.APIError
		if errors.As(err, &apiErr) {
			p.metrics.PredictionRequested(metrics.OutcomeUpstreamError)
			p.logger.Warn("inference returned error",
				"status", apiErr.Status,
				"body", apiErr.Body,
			)
			return c.Status(apiErr.Status).JSON(ErrorResponse{Error: apiErr.Error()})
		}

		p.metrics.PredictionRequested(metrics.OutcomeTransportError)
		p.logger.Error("inference request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "inference request failed"})
	}

	p.metrics.PredictionRequested(metrics.OutcomeOK)
	p.logger.Debug("scored customer",
		"probability", result.Probability,
		"risk_level", string(result.RiskLevel),
		"duration", time.Since(start),
	)

	return c.JSON(PredictResponse{
		Prediction: result,
		Insights:   churn.Insights(result.Probability, customer),
	})
}

// handleHealth reports the health of the inference endpoint.
func (p *Proxy) handleHealth(c *fiber.Ctx) error {
	h, err := p.inference.Health(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(HealthResponse{
			Status: "unavailable",
			Error:  err.Error(),
		})
	}
	return c.JSON(HealthResponse{Status: "ok", Inference: h})
}

func isEventStream(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/event-stream")
}
