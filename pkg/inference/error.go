package inference

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the inference endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API Error %d", e.Status)
	}
	return fmt.Sprintf("API Error %d: %s", e.Status, e.Body)
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
