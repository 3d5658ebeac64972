package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultModel is the gateway model used for ChurnBot replies.
const DefaultModel = "google/gemini-3-flash-preview"

// Gateway error messages surfaced to chat clients.
const (
	MessageRateLimited      = "Rate limit exceeded, please try again shortly."
	MessageCreditsExhausted = "Service credits exhausted."
	MessageGatewayError     = "AI service error"
	MessageNoResponse       = "Failed to get response"
)

// Request is the body a chat client posts.
type Request struct {
	Messages []Message `json:"messages"`
}

// GatewayRequest is the chat completion request sent to the model gateway.
type GatewayRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// NewGatewayRequest prepends the system prompt to msgs and asks the gateway
// for a streamed completion. An empty model selects DefaultModel.
func NewGatewayRequest(model string, msgs []Message) GatewayRequest {
	if model == "" {
		model = DefaultModel
	}

	all := make([]Message, 0, len(msgs)+1)
	all = append(all, Message{Role: RoleSystem, Content: SystemPrompt})
	all = append(all, msgs...)

	return GatewayRequest{Model: model, Messages: all, Stream: true}
}

// GatewayError is a non-streaming failure reported to a chat client.
type GatewayError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("chat error %d: %s", e.Status, e.Message)
}

// MapGatewayStatus translates a failed gateway status into the error relayed
// to chat clients. Rate limiting and exhausted credits keep their status;
// everything else becomes a 500.
func MapGatewayStatus(status int) *GatewayError {
	switch status {
	case http.StatusTooManyRequests:
		return &GatewayError{Status: status, Message: MessageRateLimited}
	case http.StatusPaymentRequired:
		return &GatewayError{Status: status, Message: MessageCreditsExhausted}
	default:
		return &GatewayError{Status: http.StatusInternalServerError, Message: MessageGatewayError}
	}
}

// decodeGatewayError reads the JSON error body of a failed chat response.
func decodeGatewayError(status int, body io.Reader) *GatewayError {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&payload); err != nil || payload.Error == "" {
		return &GatewayError{Status: status, Message: MessageNoResponse}
	}
	return &GatewayError{Status: status, Message: payload.Error}
}
