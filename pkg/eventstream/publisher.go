package eventstream

import "context"

// Publisher publishes prediction events to an event stream backend.
type Publisher interface {
	PublishPrediction(ctx context.Context, event *PredictionSavedEvent) error
	Close() error
}
