package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/churnsense/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.PredictionSavedEvent

	// Fail causes Publish to return an error.
	Fail bool

	closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishPrediction(_ context.Context, event *eventstream.PredictionSavedEvent) error {
	if event == nil {
		return eventstream.ErrNilPredictionEvent
	}
	if m.Fail {
		return errors.New("mock publish failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []*eventstream.PredictionSavedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.PredictionSavedEvent(nil), m.events...)
}

func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
