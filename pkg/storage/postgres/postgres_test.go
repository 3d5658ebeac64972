package postgres_test

import (
	"context"
	"fmt"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/storage"
	"github.com/papercomputeco/churnsense/pkg/storage/postgres"
	"github.com/papercomputeco/churnsense/pkg/storage/sqlstore"
	testutils "github.com/papercomputeco/churnsense/pkg/utils/test"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("CHURNSENSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("CHURNSENSE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	Context("against a live server", func() {
		testutils.DescribeDriverBehavior(func() storage.Driver {
			ctx := context.Background()
			d, err := postgres.NewDriver(ctx, connStr())
			Expect(err).NotTo(HaveOccurred())

			// Clean all predictions before each test for isolation.
			_, err = d.DB().ExecContext(ctx, "DELETE FROM "+sqlstore.TableName)
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})

	Describe("NewDriver", func() {
		It("returns an error for an unreachable server", func() {
			_, err := postgres.NewDriver(context.Background(), "host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
			Expect(err).To(HaveOccurred())
			fmt.Fprintf(GinkgoWriter, "expected error: %v\n", err)
		})
	})
})
