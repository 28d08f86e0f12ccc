package nats

import (
	"context"
	"sync"
)

// MockPublisher is an in-memory Publisher for tests.
type MockPublisher struct {
	mu                sync.RWMutex
	publishedEvents   []*SwapEvent
	publishError      error
	publishBatchError error
	closed            bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{publishedEvents: make([]*SwapEvent, 0)}
}

// PublishSwap records the event and returns any configured error.
func (m *MockPublisher) PublishSwap(ctx context.Context, event *SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return m.publishError
	}
	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// PublishSwapBatch records the events and returns any configured error.
func (m *MockPublisher) PublishSwapBatch(ctx context.Context, events []*SwapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishBatchError != nil {
		return m.publishBatchError
	}
	m.publishedEvents = append(m.publishedEvents, events...)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// PublishedEvents returns a copy of all published events.
func (m *MockPublisher) PublishedEvents() []*SwapEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]*SwapEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// SetPublishError configures the mock to return err on PublishSwap.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed reports whether Close was called.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
