package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/churnsense/pkg/chat"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/pkg/sse"
	"github.com/papercomputeco/churnsense/proxy/header"
)

// errMissingGatewayKey is reported when chat is requested without a key.
const errMissingGatewayKey = "gateway API key is not configured"

// handleChat relays a ChurnBot conversation to the model gateway and streams
// the reply back verbatim.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	if p.config.GatewayAPIKey == "" {
		p.metrics.ChatStream(metrics.OutcomeRejected)
		p.logger.Error("chat requested without gateway key")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: errMissingGatewayKey})
	}

	var req chat.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.metrics.ChatStream(metrics.OutcomeRejected)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid chat payload"})
	}

	body, err := json.Marshal(chat.NewGatewayRequest(p.config.GatewayModel, req.Messages))
	if err != nil {
		p.logger.Error("failed to marshal gateway request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the streaming
	// goroutine still needs the gateway connection.
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, p.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		p.logger.Error("failed to create gateway request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}

	p.headerHandler.SetUpstreamRequestHeaders(c, httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.GatewayAPIKey)

	sessionID := c.Get(header.SessionHeader)
	p.logger.Debug("forwarding chat to gateway",
		"url", p.config.GatewayURL,
		"session_id", sessionID,
		"message_count", len(req.Messages),
	)

	start := time.Now()
	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.metrics.ObserveUpstream(metrics.UpstreamGateway, 0, time.Since(start))
		p.metrics.ChatStream(metrics.OutcomeErrored)
		p.logger.Error("gateway request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: chat.MessageGatewayError})
	}
	p.metrics.ObserveUpstream(metrics.UpstreamGateway, httpResp.StatusCode, time.Since(start))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		httpResp.Body.Close()
		p.logger.Error("gateway returned error",
			"status", httpResp.StatusCode,
			"body", string(respBody),
		)

		p.metrics.ChatStream(metrics.OutcomeUpstreamError)
		gwErr := chat.MapGatewayStatus(httpResp.StatusCode)
		return c.Status(gwErr.Status).JSON(ErrorResponse{Error: gwErr.Message})
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)
	if !isEventStream(httpResp.Header.Get("Content-Type")) {
		c.Set(fiber.HeaderContentType, "text/event-stream")
	}

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter: pw.Write
	// blocks until fasthttp's chunked writer consumes the data and flushes it
	// to TCP, giving per-chunk streaming with backpressure.
	pr, pw := io.Pipe()
	go p.relayChatStream(httpResp, pw, sessionID, start)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// relayChatStream copies the gateway body to pw verbatim while an assembler
// rebuilds the reply.
func (p *Proxy) relayChatStream(httpResp *http.Response, pw *io.PipeWriter, sessionID string, start time.Time) {
	defer httpResp.Body.Close()

	a := sse.NewAssembler(nil)
	err := sse.Tee(context.Background(), httpResp.Body, pw, a)
	pw.CloseWithError(err)

	p.metrics.ChatFragments(a.Fragments())
	if n := a.Dropped(); n > 0 {
		p.logger.Warn("dropped unterminated stream bytes",
			"session_id", sessionID,
			"bytes", n,
		)
	}

	if err != nil {
		p.metrics.ChatStream(metrics.OutcomeErrored)
		p.logger.Error("chat stream failed",
			"session_id", sessionID,
			"error", err,
			"partial_length", len(a.Message()),
		)
		return
	}

	p.metrics.ChatStream(metrics.OutcomeCompleted)
	p.logger.Debug("chat stream complete",
		"session_id", sessionID,
		"state", a.State().String(),
		"fragments", a.Fragments(),
		"reply_length", len(a.Message()),
		"duration", time.Since(start),
	)
}
