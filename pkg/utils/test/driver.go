package testutils

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
)

// DescribeDriverBehavior registers the specs every storage.Driver must pass.
// newDriver is called before each spec; the driver is closed after it.
func DescribeDriverBehavior(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	ids := func(preds []*churn.Prediction) []string {
		out := make([]string, len(preds))
		for i, p := range preds {
			out[i] = p.ID
		}
		return out
	}

	Describe("Put and Get", func() {
		It("round-trips a prediction", func() {
			p := NewTestPrediction("p-1", 0.72, 0)
			Expect(driver.Put(ctx, p)).To(Succeed())

			got, err := driver.Get(ctx, "p-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("p-1"))
			Expect(got.SessionID).To(Equal("test-session"))
			Expect(got.Customer).To(Equal(p.Customer))
			Expect(got.Probability).To(BeNumerically("~", 0.72, 1e-9))
			Expect(got.RiskLevel).To(Equal(churn.RiskHigh))
			Expect(got.PredictedChurn).To(BeTrue())
			Expect(got.CreatedAt.Equal(p.CreatedAt)).To(BeTrue())
		})

		It("replaces a prediction with the same ID", func() {
			Expect(driver.Put(ctx, NewTestPrediction("p-1", 0.2, 0))).To(Succeed())
			Expect(driver.Put(ctx, NewTestPrediction("p-1", 0.9, 0))).To(Succeed())

			got, err := driver.Get(ctx, "p-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RiskLevel).To(Equal(churn.RiskHigh))

			all, err := driver.List(ctx, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("rejects nil predictions", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilPrediction))
		})

		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			low := NewTestPrediction("a-low", 0.10, 1)
			low.Customer.Tenure = 40
			low.Customer.Contract = "Two year"
			low.Customer.InternetService = "DSL"
			low.Customer.Gender = "Female"

			medium := NewTestPrediction("b-medium", 0.50, 2)
			medium.Customer.Tenure = 5

			high := NewTestPrediction("c-high", 0.80, 3)
			high.Customer.Tenure = 20

			for _, p := range []*churn.Prediction{low, medium, high} {
				Expect(driver.Put(ctx, p)).To(Succeed())
			}
		})

		It("orders by newest first by default", func() {
			got, err := driver.List(ctx, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"c-high", "b-medium", "a-low"}))
		})

		It("orders by probability ascending", func() {
			got, err := driver.List(ctx, storage.Query{Sort: storage.SortByProbability, Dir: storage.Asc})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"a-low", "b-medium", "c-high"}))
		})

		It("orders by tenure descending", func() {
			got, err := driver.List(ctx, storage.Query{Sort: storage.SortByTenure})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"a-low", "c-high", "b-medium"}))
		})

		It("filters by risk level", func() {
			got, err := driver.List(ctx, storage.Query{Risk: churn.RiskMedium})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"b-medium"}))
		})

		It("searches contract, internet service and gender case-insensitively", func() {
			got, err := driver.List(ctx, storage.Query{Search: "dsl"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"a-low"}))

			got, err = driver.List(ctx, storage.Query{Search: "MONTH"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"c-high", "b-medium"}))

			got, err = driver.List(ctx, storage.Query{Search: "female"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"a-low"}))
		})

		It("combines search and risk filters", func() {
			got, err := driver.List(ctx, storage.Query{Search: "fiber", Risk: churn.RiskHigh})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"c-high"}))
		})

		It("applies the limit after sorting", func() {
			got, err := driver.List(ctx, storage.Query{Sort: storage.SortByProbability, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"c-high", "b-medium"}))
		})
	})

	Describe("Delete", func() {
		It("removes a prediction", func() {
			Expect(driver.Put(ctx, NewTestPrediction("gone", 0.3, 0))).To(Succeed())
			Expect(driver.Delete(ctx, "gone")).To(Succeed())

			_, err := driver.Get(ctx, "gone")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("returns NotFoundError for unknown IDs", func() {
			err := driver.Delete(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})
}
