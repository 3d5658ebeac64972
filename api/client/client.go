// Package client is an HTTP client for the churnsense history API, used by
// the CLI to save, list, show and delete predictions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/churnsense/api"
	"github.com/papercomputeco/churnsense/pkg/utils"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 4096

// StatusError is a non-2xx API response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// ListParams are the query parameters of GET /predictions. Zero values are
// left to the server defaults.
type ListParams struct {
	Search string
	Risk   string
	Sort   string
	Dir    string
	Limit  int
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Risk != "" {
		v.Set("risk", p.Risk)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Dir != "" {
		v.Set("dir", p.Dir)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

// Client calls the history API at a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. A zero timeout selects DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Save stores a scored customer.
func (c *Client) Save(ctx context.Context, req api.SaveRequest) (*api.PredictionResponse, error) {
	out := &api.PredictionResponse{}
	if err := c.do(ctx, http.MethodPost, "/predictions", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the predictions matching p.
func (c *Client) List(ctx context.Context, p ListParams) (*api.ListResponse, error) {
	path := "/predictions"
	if q := p.values().Encode(); q != "" {
		path += "?" + q
	}

	out := &api.ListResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one prediction with its insights.
func (c *Client) Get(ctx context.Context, id string) (*api.PredictionResponse, error) {
	out := &api.PredictionResponse{}
	if err := c.do(ctx, http.MethodGet, "/predictions/"+url.PathEscape(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reload returns the customer attributes of a stored prediction.
func (c *Client) Reload(ctx context.Context, id string) (*api.ReloadResponse, error) {
	out := &api.ReloadResponse{}
	if err := c.do(ctx, http.MethodGet, "/predictions/"+url.PathEscape(id)+"/reload", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a prediction.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/predictions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
