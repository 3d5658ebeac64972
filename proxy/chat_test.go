package proxy_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/churnsense/pkg/chat"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/proxy"
)

func chatRequest(msgs ...chat.Message) *http.Request {
	req := jsonRequest(http.MethodPost, "/chat", chat.Request{Messages: msgs})
	req.Header.Set("Authorization", "Bearer widget-anon-key")
	return req
}

func chatStreamsCount(m *metrics.Metrics, outcome string) func() float64 {
	return func() float64 {
		families, err := m.Registry().Gather()
		Expect(err).NotTo(HaveOccurred())
		for _, f := range families {
			if f.GetName() != "churnsense_chat_streams_total" {
				continue
			}
			for _, metric := range f.GetMetric() {
				for _, l := range metric.GetLabel() {
					if l.GetName() == "outcome" && l.GetValue() == outcome {
						return metric.GetCounter().GetValue()
					}
				}
			}
		}
		return 0
	}
}

var _ = Describe("POST /chat", func() {
	var (
		p        *proxy.Proxy
		m        *metrics.Metrics
		gateway  *httptest.Server
		auth     string
		received chat.GatewayRequest
	)

	BeforeEach(func() {
		m = metrics.New()
		auth = ""
		received = chat.GatewayRequest{}
	})

	AfterEach(func() {
		if p != nil {
			p.Close()
		}
		if gateway != nil {
			gateway.Close()
		}
	})

	streamingGateway := func(events []string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			flusher, ok := w.(http.Flusher)
			Expect(ok).To(BeTrue())

			for _, event := range events {
				fmt.Fprint(w, event)
				flusher.Flush()
			}
		}))
	}

	Context("when the gateway streams a reply", func() {
		events := []string{
			": keep-alive\n\n",
			"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\",\"content\":\"Month-to-month\"}}]}\n\n",
			"data: {\"choices\":[{\"delta\":{\"content\":\" contracts churn most.\"}}]}\n\n",
			"data: [DONE]\n\n",
		}

		BeforeEach(func() {
			gateway = streamingGateway(events)
			p = newTestProxy(proxy.Config{
				GatewayURL:    gateway.URL,
				GatewayAPIKey: "gw-key",
				Metrics:       m,
			})
		})

		It("forwards the stream verbatim", func() {
			resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "What drives churn?"}), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal(strings.Join(events, "")))
		})

		It("sends the system prompt, model and gateway key", func() {
			resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "hi"}), -1)
			Expect(err).NotTo(HaveOccurred())
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			Expect(auth).To(Equal("Bearer gw-key"))
			Expect(received.Model).To(Equal(chat.DefaultModel))
			Expect(received.Stream).To(BeTrue())
			Expect(received.Messages).To(HaveLen(2))
			Expect(received.Messages[0].Role).To(Equal(chat.RoleSystem))
			Expect(received.Messages[1]).To(Equal(chat.Message{Role: chat.RoleUser, Content: "hi"}))
		})

		It("records the completed stream and its fragments", func() {
			resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "hi"}), -1)
			Expect(err).NotTo(HaveOccurred())
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			Eventually(chatStreamsCount(m, metrics.OutcomeCompleted)).Should(Equal(1.0))
			n, err := testutil.GatherAndCount(m.Registry(), "churnsense_chat_fragments_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})

		It("is readable by the chat client", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "hi"}), -1)
				if err != nil {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				defer resp.Body.Close()
				w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
				_, _ = io.Copy(w, resp.Body)
			}))
			defer srv.Close()

			msg, err := chat.NewClient(chat.Config{Endpoint: srv.URL}).Stream(GinkgoT().Context(), nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("Month-to-month contracts churn most."))
		})
	})

	Context("without a gateway key", func() {
		BeforeEach(func() {
			p = newTestProxy(proxy.Config{Metrics: m})
		})

		It("returns 500 with an error body", func() {
			resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "hi"}), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

			var out proxy.ErrorResponse
			decodeBody(resp, &out)
			Expect(out.Error).To(ContainSubstring("gateway API key"))
			Expect(chatStreamsCount(m, metrics.OutcomeRejected)()).To(Equal(1.0))
		})
	})

	DescribeTable("gateway failures",
		func(gatewayStatus, wantStatus int, wantMessage string) {
			gateway = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(gatewayStatus)
				_, _ = w.Write([]byte(`{"error":"upstream detail"}`))
			}))
			p = newTestProxy(proxy.Config{GatewayURL: gateway.URL, GatewayAPIKey: "gw-key", Metrics: m})

			resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "hi"}), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(wantStatus))

			var out proxy.ErrorResponse
			decodeBody(resp, &out)
			Expect(out.Error).To(Equal(wantMessage))
			Expect(chatStreamsCount(m, metrics.OutcomeUpstreamError)()).To(Equal(1.0))
		},
		Entry("rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests, chat.MessageRateLimited),
		Entry("credits exhausted", http.StatusPaymentRequired, http.StatusPaymentRequired, chat.MessageCreditsExhausted),
		Entry("other errors", http.StatusBadRequest, http.StatusInternalServerError, chat.MessageGatewayError),
	)

	Context("when the gateway is unreachable", func() {
		BeforeEach(func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			url := dead.URL
			dead.Close()
			p = newTestProxy(proxy.Config{GatewayURL: url, GatewayAPIKey: "gw-key", Metrics: m})
		})

		It("returns 500", func() {
			resp, err := p.App().Test(chatRequest(chat.Message{Role: chat.RoleUser, Content: "hi"}), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			resp.Body.Close()
			Expect(chatStreamsCount(m, metrics.OutcomeErrored)()).To(Equal(1.0))
		})
	})

	It("rejects malformed payloads", func() {
		p = newTestProxy(proxy.Config{GatewayAPIKey: "gw-key"})

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("not json"))
		resp, err := p.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		resp.Body.Close()
	})
})
