package proxy_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	testutils "github.com/papercomputeco/churnsense/pkg/utils/test"
	"github.com/papercomputeco/churnsense/proxy"
)

func newTestProxy(cfg proxy.Config) *proxy.Proxy {
	cfg.ListenAddr = ":0"
	p, err := proxy.New(cfg, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return p
}

func jsonRequest(method, path string, body any) *http.Request {
	b, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	req := httptest.NewRequest(method, path, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(resp *http.Response, v any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

var _ = Describe("New", func() {
	It("requires a listen address", func() {
		_, err := proxy.New(proxy.Config{}, nil)
		Expect(err).To(MatchError(ContainSubstring("listen address")))
	})
})

var _ = Describe("POST /predict", func() {
	var (
		p        *proxy.Proxy
		m        *metrics.Metrics
		upstream *httptest.Server
		received map[string]any
	)

	AfterEach(func() {
		if p != nil {
			p.Close()
		}
		if upstream != nil {
			upstream.Close()
		}
	})

	Context("when the model scores the customer", func() {
		BeforeEach(func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/predict"))
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"probability_of_churn":0.81,"predicted_churn_status":"High"}`))
			}))
			m = metrics.New()
			p = newTestProxy(proxy.Config{InferenceURL: upstream.URL, Metrics: m})
		})

		It("returns the classified prediction and insights", func() {
			customer := testutils.NewTestCustomer(3, 90)
			resp, err := p.App().Test(jsonRequest(http.MethodPost, "/predict", customer), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out proxy.PredictResponse
			decodeBody(resp, &out)

			Expect(out.Prediction.Probability).To(BeNumerically("~", 0.81, 1e-9))
			Expect(out.Prediction.RiskLevel).To(Equal(churn.RiskHigh))
			Expect(out.Prediction.PredictedChurn).To(BeTrue())
			Expect(out.Insights).To(Equal(churn.Insights(0.81, customer)))
		})

		It("forwards derived total charges", func() {
			resp, err := p.App().Test(jsonRequest(http.MethodPost, "/predict", testutils.NewTestCustomer(3, 90)), -1)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(received["TotalCharges"]).To(BeNumerically("~", 270, 1e-9))
		})

		It("counts successful requests", func() {
			resp, err := p.App().Test(jsonRequest(http.MethodPost, "/predict", testutils.NewTestCustomer(3, 90)), -1)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			expected := `
# HELP churnsense_predictions_requested_total Prediction requests forwarded to the inference endpoint, by outcome.
# TYPE churnsense_predictions_requested_total counter
churnsense_predictions_requested_total{outcome="ok"} 1
`
			Expect(testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
				"churnsense_predictions_requested_total")).To(Succeed())
		})

		It("rejects malformed payloads", func() {
			req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("{"))
			req.Header.Set("Content-Type", "application/json")

			resp, err := p.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Context("when the model returns an error status", func() {
		BeforeEach(func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"detail":"bad tenure"}`))
			}))
			p = newTestProxy(proxy.Config{InferenceURL: upstream.URL})
		})

		It("relays the status with an error body", func() {
			resp, err := p.App().Test(jsonRequest(http.MethodPost, "/predict", testutils.NewTestCustomer(3, 90)), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

			var out proxy.ErrorResponse
			decodeBody(resp, &out)
			Expect(out.Error).To(ContainSubstring("API Error 422"))
			Expect(out.Error).To(ContainSubstring("bad tenure"))
		})
	})

	Context("when the model is unreachable", func() {
		BeforeEach(func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			url := dead.URL
			dead.Close()
			p = newTestProxy(proxy.Config{InferenceURL: url})
		})

		It("returns 502", func() {
			resp, err := p.App().Test(jsonRequest(http.MethodPost, "/predict", testutils.NewTestCustomer(3, 90)), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var out proxy.ErrorResponse
			decodeBody(resp, &out)
			Expect(out.Error).To(Equal("inference request failed"))
		})
	})
})

var _ = Describe("GET /health", func() {
	var (
		p        *proxy.Proxy
		upstream *httptest.Server
	)

	AfterEach(func() {
		p.Close()
		upstream.Close()
	})

	It("reports the inference health", func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"healthy","model_features_count":30}`))
		}))
		p = newTestProxy(proxy.Config{InferenceURL: upstream.URL})

		resp, err := p.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out proxy.HealthResponse
		decodeBody(resp, &out)
		Expect(out.Status).To(Equal("ok"))
		Expect(out.Inference.Status).To(Equal("healthy"))
		Expect(out.Inference.ModelFeaturesCount).To(Equal(30))
	})

	It("reports an unavailable model", func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		p = newTestProxy(proxy.Config{InferenceURL: upstream.URL})

		resp, err := p.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(string(body)).To(ContainSubstring("unavailable"))
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight requests for the configured origins", func() {
		p := newTestProxy(proxy.Config{AllowOrigins: "https://widget.example.com"})
		defer p.Close()

		req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
		req.Header.Set("Origin", "https://widget.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := p.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("https://widget.example.com"))
	})
})
