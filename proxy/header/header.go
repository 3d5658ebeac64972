// Package header provides header filtering for the churnsense proxy.
//
// The proxy sits between a browser chat widget and the model gateway:
//
//	Client <--> Proxy <--> Model Gateway
//
// and headers are handled accordingly as each leg negotiates compression,
// hops, encoding and credentials independently.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between proxy connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// SessionHeader optionally tags chat requests with the widget session ID.
const SessionHeader = "X-Churnsense-Session"

// skipRequest is the set of request headers (client --> proxy --> gateway)
// that are not forwarded upstream.
var skipRequest = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// Rewritten by Go's http.Transport to match the gateway URL.
	"Host": {},

	// Stripped so that Go's http.Transport negotiates gzip itself and
	// transparently decompresses the gateway response.
	"Accept-Encoding": {},

	// The proxy rewrites the body, so the client's length no longer applies.
	"Content-Length": {},

	// The gateway key is set by the proxy. Client credentials never leave it.
	"Authorization": {},
	"Cookie":        {},

	// Browser-only headers the gateway has no use for.
	"Origin":  {},
	"Referer": {},

	SessionHeader: {},
}

// skipResponse is the set of gateway response headers (client <-- proxy <-- gateway)
// that are not copied back to the client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// fasthttp manages chunked transfer encoding for the client-facing
	// response independently.
	"Transfer-Encoding": {},

	// The proxy reads a decompressed body; Fiber's compress middleware sets
	// the correct Content-Encoding when it re-compresses.
	"Content-Encoding": {},

	// Stale after decompression.
	"Content-Length": {},

	// CORS is answered by the proxy's own middleware.
	"Access-Control-Allow-Origin":      {},
	"Access-Control-Allow-Credentials": {},
	"Set-Cookie":                       {},
}

// SetUpstreamRequestHeaders copies request headers from the Fiber context to
// the outgoing http.Request, filtering headers that the proxy should not
// forward to the gateway.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if _, skip := skipRequest[k]; !skip {
			req.Header.Set(k, string(value))
		}
	})
}

// SetClientResponseHeaders copies response headers from the gateway
// http.Response to the Fiber context, filtering headers that the proxy should
// not forward back down to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}
