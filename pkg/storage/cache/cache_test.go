package cache_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/storage"
	"github.com/papercomputeco/churnsense/pkg/storage/cache"
	"github.com/papercomputeco/churnsense/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/churnsense/pkg/utils/test"
)

// blockingDriver parks Delete until release is closed.
type blockingDriver struct {
	storage.Driver
	deleting chan struct{}
	release  chan struct{}
}

func (b *blockingDriver) Delete(ctx context.Context, id string) error {
	close(b.deleting)
	<-b.release
	return b.Driver.Delete(ctx, id)
}

// countingDriver counts Get calls reaching the wrapped driver.
type countingDriver struct {
	storage.Driver
	gets int
}

func (c *countingDriver) Get(ctx context.Context, id string) (*churn.Prediction, error) {
	c.gets++
	return c.Driver.Get(ctx, id)
}

var _ = Describe("Driver", func() {
	Context("shared driver behavior", func() {
		testutils.DescribeDriverBehavior(func() storage.Driver {
			d, err := cache.New(inmemory.NewDriver(), 2)
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})

	var (
		ctx   context.Context
		inner *countingDriver
		d     *cache.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		inner = &countingDriver{Driver: inmemory.NewDriver()}

		var err error
		d, err = cache.New(inner, 2)
		Expect(err).NotTo(HaveOccurred())
	})

	It("serves repeated reads from the cache", func() {
		Expect(inner.Driver.Put(ctx, testutils.NewTestPrediction("p-1", 0.4, 0))).To(Succeed())

		for range 3 {
			p, err := d.Get(ctx, "p-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID).To(Equal("p-1"))
		}
		Expect(inner.gets).To(Equal(1))
		Expect(d.Len()).To(Equal(1))
	})

	It("caches on write", func() {
		Expect(d.Put(ctx, testutils.NewTestPrediction("p-1", 0.4, 0))).To(Succeed())
		_, err := d.Get(ctx, "p-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.gets).To(BeZero())
	})

	It("evicts the least recently used prediction", func() {
		for _, id := range []string{"a", "b", "c"} {
			Expect(d.Put(ctx, testutils.NewTestPrediction(id, 0.4, 0))).To(Succeed())
		}
		Expect(d.Len()).To(Equal(2))

		_, err := d.Get(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.gets).To(Equal(1))
	})

	It("forgets deleted predictions", func() {
		Expect(d.Put(ctx, testutils.NewTestPrediction("p-1", 0.4, 0))).To(Succeed())
		Expect(d.Delete(ctx, "p-1")).To(Succeed())

		_, err := d.Get(ctx, "p-1")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("does not let callers mutate cached records", func() {
		Expect(d.Put(ctx, testutils.NewTestPrediction("p-1", 0.4, 0))).To(Succeed())
		p, err := d.Get(ctx, "p-1")
		Expect(err).NotTo(HaveOccurred())
		p.Probability = 0.99

		again, err := d.Get(ctx, "p-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Probability).To(Equal(0.4))
	})

	It("does not refill a prediction read while its delete is in flight", func() {
		blocking := &blockingDriver{
			Driver:   inmemory.NewDriver(),
			deleting: make(chan struct{}),
			release:  make(chan struct{}),
		}
		Expect(blocking.Driver.Put(ctx, testutils.NewTestPrediction("p-1", 0.4, 0))).To(Succeed())

		bd, err := cache.New(blocking, 2)
		Expect(err).NotTo(HaveOccurred())

		deleted := make(chan error, 1)
		go func() {
			deleted <- bd.Delete(ctx, "p-1")
		}()
		Eventually(blocking.deleting).Should(BeClosed())

		read := make(chan struct{})
		go func() {
			defer close(read)
			_, _ = bd.Get(ctx, "p-1")
		}()
		Consistently(read, "50ms").ShouldNot(BeClosed())

		close(blocking.release)
		Eventually(deleted).Should(Receive(BeNil()))
		Eventually(read).Should(BeClosed())

		_, err = bd.Get(ctx, "p-1")
		Expect(storage.IsNotFound(err)).To(BeTrue())
		Expect(bd.Len()).To(BeZero())
	})
})
