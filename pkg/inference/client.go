// Package inference implements a client for the externally hosted churn
// model's HTTP API.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/pkg/utils"
)

const (
	// DefaultBaseURL is the default inference endpoint.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds each request. Hosted models may cold start.
	DefaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4096
)

// Config holds configuration for the inference client.
type Config struct {
	// BaseURL is the inference API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Client wraps the inference API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// Result is a scored customer.
type Result struct {
	Probability     float64         `json:"churn_probability"`
	PredictedChurn  bool            `json:"predicted_churn"`
	RiskLevel       churn.RiskLevel `json:"risk_level"`
	Status          string          `json:"predicted_churn_status,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// Health is the inference service's health report.
type Health struct {
	Status             string `json:"status"`
	ModelFeaturesCount int    `json:"model_features_count,omitempty"`
}

// predictResponse accepts every probability field name the model has used.
type predictResponse struct {
	ProbabilityOfChurn   *float64 `json:"probability_of_churn"`
	ChurnProbability     *float64 `json:"churn_probability"`
	Probability          *float64 `json:"probability"`
	ChurnProb            *float64 `json:"churn_prob"`
	PredictedChurnStatus string   `json:"predicted_churn_status"`
	Recommendations      []string `json:"recommendations"`
}

func (r predictResponse) probability() float64 {
	for _, p := range []*float64{r.ProbabilityOfChurn, r.ChurnProbability, r.Probability, r.ChurnProb} {
		if p != nil {
			return *p
		}
	}
	return 0
}

// NewClient creates a new inference client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: cfg.Metrics,
	}
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Predict scores a customer. Risk level and churn outcome are classified
// locally from the returned probability.
func (c *Client) Predict(ctx context.Context, customer churn.Customer) (*Result, error) {
	body, err := json.Marshal(customer.WithDerivedTotals())
	if err != nil {
		return nil, fmt.Errorf("marshaling customer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding prediction: %w", err)
	}

	p := pr.probability()
	return &Result{
		Probability:     p,
		PredictedChurn:  churn.PredictedChurn(p),
		RiskLevel:       churn.Classify(p),
		Status:          pr.PredictedChurnStatus,
		Recommendations: pr.Recommendations,
	}, nil
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decoding health: %w", err)
	}
	return &h, nil
}

// Warm sends a request that wakes a scaled-to-zero host. The response is
// discarded; callers usually ignore the error.
func (c *Client) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/docs", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("warming inference endpoint: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(metrics.UpstreamInference, 0, time.Since(start))
		return nil, fmt.Errorf("sending request: %w", err)
	}
	c.metrics.ObserveUpstream(metrics.UpstreamInference, resp.StatusCode, time.Since(start))
	return resp, nil
}
