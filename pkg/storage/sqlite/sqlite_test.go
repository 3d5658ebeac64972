package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/storage"
	"github.com/papercomputeco/churnsense/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/churnsense/pkg/utils/test"
)

var _ = Describe("Driver", func() {
	Context("in memory", func() {
		testutils.DescribeDriverBehavior(func() storage.Driver {
			d, err := sqlite.NewDriver(context.Background(), sqlite.MemoryPath)
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})

	Describe("NewDriver", func() {
		It("creates a driver with a file database that survives reopening", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "churnsense.db")

			d, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Put(ctx, testutils.NewTestPrediction("persisted", 0.55, 0))).To(Succeed())
			Expect(d.Close()).To(Succeed())

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())

			reopened, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			got, err := reopened.Get(ctx, "persisted")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Probability).To(BeNumerically("~", 0.55, 1e-9))
		})
	})
})
