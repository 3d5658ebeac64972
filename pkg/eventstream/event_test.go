package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/eventstream"
	testutils "github.com/papercomputeco/churnsense/pkg/utils/test"
)

var _ = Describe("Event", func() {
	It("builds a v1 prediction saved event", func() {
		now := time.Unix(1735689600, 0).In(time.FixedZone("x", -3600))
		p := testutils.NewTestPrediction("pred-1", 0.81, 0)

		event := eventstream.NewPredictionSavedEvent("churnsense-api", p, now)
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypePredictionSaved))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.EmittedAt.Location()).To(Equal(time.UTC))
		Expect(event.Source.Service).To(Equal("churnsense-api"))
		Expect(event.Source.SessionID).To(Equal("test-session"))
		Expect(event.Prediction.ID).To(Equal("pred-1"))
		Expect(event.Insights).NotTo(BeEmpty())
	})

	It("gives every event a distinct ID", func() {
		p := testutils.NewTestPrediction("pred-1", 0.2, 0)
		a := eventstream.NewPredictionSavedEvent("svc", p, time.Now())
		b := eventstream.NewPredictionSavedEvent("svc", p, time.Now())
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("marshals with the expected top-level keys", func() {
		p := testutils.NewTestPrediction("pred-1", 0.4, 0)
		payload, err := json.Marshal(eventstream.NewPredictionSavedEvent("svc", p, time.Now()))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("prediction"))

		prediction, ok := got["prediction"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(prediction["risk_level"]).To(Equal("Medium"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypePredictionSaved).To(Equal("churnsense.prediction.saved"))
	})

	It("provides ErrNilPredictionEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilPredictionEvent).To(MatchError("nil prediction event"))
	})
})
