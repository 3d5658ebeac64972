package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/churnsense/pkg/churn"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypePredictionSaved is emitted after a prediction is persisted.
	EventTypePredictionSaved = "churnsense.prediction.saved"
)

// PredictionSavedEvent is a transport-neutral event payload for a saved
// prediction.
type PredictionSavedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Source        EventSource      `json:"source"`
	Prediction    churn.Prediction `json:"prediction"`
	Insights      []string         `json:"insights,omitempty"`
}

// EventSource identifies where the prediction was saved.
type EventSource struct {
	Service   string `json:"service"`
	SessionID string `json:"session_id,omitempty"`
}

// NewPredictionSavedEvent builds a v1 event for p emitted by service at now.
func NewPredictionSavedEvent(service string, p *churn.Prediction, now time.Time) *PredictionSavedEvent {
	return &PredictionSavedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypePredictionSaved,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source: EventSource{
			Service:   service,
			SessionID: p.SessionID,
		},
		Prediction: *p,
		Insights:   p.Insights(),
	}
}
