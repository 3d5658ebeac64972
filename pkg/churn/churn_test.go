package churn_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

func loyalCustomer() churn.Customer {
	return churn.Customer{
		Gender:           "Female",
		Partner:          churn.Yes,
		Dependents:       churn.Yes,
		Tenure:           60,
		Contract:         "Two year",
		PaymentMethod:    "Credit card (automatic)",
		PaperlessBilling: churn.No,
		MonthlyCharges:   80,
		PhoneService:     churn.Yes,
		MultipleLines:    churn.Yes,
		InternetService:  "DSL",
		OnlineSecurity:   churn.Yes,
		OnlineBackup:     churn.Yes,
		DeviceProtection: churn.Yes,
		TechSupport:      churn.Yes,
		StreamingTV:      churn.Yes,
		StreamingMovies:  churn.Yes,
	}
}

var _ = Describe("Risk", func() {
	DescribeTable("Classify",
		func(p float64, want churn.RiskLevel) {
			Expect(churn.Classify(p)).To(Equal(want))
		},
		Entry("zero", 0.0, churn.RiskLow),
		Entry("just below medium", 0.3499, churn.RiskLow),
		Entry("medium boundary", 0.35, churn.RiskMedium),
		Entry("just below high", 0.6499, churn.RiskMedium),
		Entry("high boundary", 0.65, churn.RiskHigh),
		Entry("certain", 1.0, churn.RiskHigh),
	)

	It("predicts churn from 0.5 upwards", func() {
		Expect(churn.PredictedChurn(0.4999)).To(BeFalse())
		Expect(churn.PredictedChurn(0.5)).To(BeTrue())
	})

	DescribeTable("ParseRiskLevel",
		func(in string, want churn.RiskLevel) {
			Expect(churn.ParseRiskLevel(in)).To(Equal(want))
		},
		Entry("High", "High", churn.RiskHigh),
		Entry("lower case", "medium", churn.RiskMedium),
		Entry("padded", " HIGH ", churn.RiskHigh),
		Entry("unknown", "Churn (Likely to leave)", churn.RiskLow),
		Entry("empty", "", churn.RiskLow),
	)

	It("labels badges", func() {
		Expect(churn.Badge(churn.RiskHigh)).To(Equal("High Risk"))
		Expect(churn.Badge(churn.RiskMedium)).To(Equal("Medium Risk"))
		Expect(churn.Badge("bogus")).To(Equal("Low Risk"))
	})

	Describe("Gauge", func() {
		It("rounds to a whole percent and picks the band color", func() {
			g := churn.Gauge(0.726)
			Expect(g.Percent).To(Equal(73))
			Expect(g.Color).To(Equal(churn.ColorHigh))
		})

		It("clamps out-of-range probabilities", func() {
			Expect(churn.Gauge(-0.2).Percent).To(Equal(0))
			Expect(churn.Gauge(-0.2).Color).To(Equal(churn.ColorLow))
			Expect(churn.Gauge(1.7).Percent).To(Equal(100))
			Expect(churn.Gauge(math.NaN()).Fraction).To(BeZero())
		})

		It("uses the medium color in the middle band", func() {
			Expect(churn.Gauge(0.5).Color).To(Equal(churn.ColorMedium))
		})
	})
})

var _ = Describe("Insights", func() {
	It("gives high risk suggestions from the customer's weak spots, capped at four", func() {
		c := churn.Customer{
			Contract:        churn.ContractMonthToMonth,
			InternetService: churn.InternetFiberOptic,
			Tenure:          3,
			TechSupport:     churn.No,
			OnlineSecurity:  churn.No,
		}
		out := churn.Insights(0.9, c)
		Expect(out).To(HaveLen(churn.MaxInsights))
		Expect(out[0]).To(ContainSubstring("discounted 1 or 2-year contract"))
		Expect(out[1]).To(ContainSubstring("Fiber optic"))
		Expect(out[2]).To(ContainSubstring("onboarding"))
		Expect(out[3]).To(ContainSubstring("Tech Support"))
	})

	It("pads high risk suggestions with generic ones when few rules match", func() {
		out := churn.Insights(0.7, loyalCustomer())
		Expect(out).To(HaveLen(2))
		Expect(out[0]).To(ContainSubstring("account manager"))
		Expect(out[1]).To(ContainSubstring("loyalty reward"))
	})

	It("gives medium risk suggestions", func() {
		c := loyalCustomer()
		c.PaymentMethod = churn.PaymentElectronicCheck
		c.StreamingTV = churn.No
		c.StreamingMovies = churn.No
		out := churn.Insights(0.5, c)
		Expect(out).To(HaveLen(2))
		Expect(out[0]).To(ContainSubstring("auto-pay"))
		Expect(out[1]).To(ContainSubstring("streaming bundles"))
	})

	It("pads medium risk suggestions when a single rule matches", func() {
		c := loyalCustomer()
		c.Contract = churn.ContractMonthToMonth
		out := churn.Insights(0.4, c)
		Expect(out).To(HaveLen(3))
		Expect(out[0]).To(ContainSubstring("contract upgrade"))
		Expect(out[1]).To(ContainSubstring("check-in"))
	})

	It("gives low risk suggestions", func() {
		c := loyalCustomer()
		Expect(churn.Insights(0.1, c)).To(HaveLen(2))

		c.StreamingTV = churn.No
		out := churn.Insights(0.1, c)
		Expect(out).To(HaveLen(3))
		Expect(out[1]).To(ContainSubstring("Streaming TV"))
	})
})

var _ = Describe("Prediction", func() {
	It("derives outcome, risk and totals", func() {
		c := loyalCustomer()
		c.Tenure = 10
		c.MonthlyCharges = 50
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

		p := churn.NewPrediction("id-1", "sess-1", c, 0.66, at)
		Expect(p.RiskLevel).To(Equal(churn.RiskHigh))
		Expect(p.PredictedChurn).To(BeTrue())
		Expect(p.Customer.TotalCharges).To(Equal(500.0))
		Expect(p.CreatedAt.Location()).To(Equal(time.UTC))
		Expect(p.Insights()).NotTo(BeEmpty())
	})

	It("keeps explicit total charges", func() {
		c := loyalCustomer()
		c.TotalCharges = 123.5
		Expect(c.WithDerivedTotals().TotalCharges).To(Equal(123.5))
	})

	It("reloads the customer with a default monthly charge", func() {
		c := loyalCustomer()
		c.MonthlyCharges = 0
		p := churn.NewPrediction("id-2", "", c, 0.1, time.Now())

		reloaded := p.Reload()
		Expect(reloaded.MonthlyCharges).To(Equal(churn.DefaultMonthlyCharges))
		Expect(reloaded.Contract).To(Equal(c.Contract))
	})
})

var _ = Describe("NewCustomer", func() {
	It("starts a new month-to-month customer without services", func() {
		c := churn.NewCustomer()
		Expect(c.Contract).To(Equal(churn.ContractMonthToMonth))
		Expect(c.PaymentMethod).To(Equal(churn.PaymentElectronicCheck))
		Expect(c.InternetService).To(Equal(churn.No))
		Expect(c.Tenure).To(BeZero())
		Expect(c.WithDerivedTotals().TotalCharges).To(BeZero())
	})
})
