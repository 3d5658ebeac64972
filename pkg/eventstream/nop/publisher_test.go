package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/eventstream"
	"github.com/papercomputeco/churnsense/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("creates a non-nil publisher", func() {
		p := nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilPredictionEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishPrediction(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilPredictionEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishPrediction(context.Background(), &eventstream.PredictionSavedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
