package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// Ensure MetricsSink implements the interface.
var _ driven.MetricsSink = (*MetricsSink)(nil)

// MetricsEvent is one recorded telemetry event.
type MetricsEvent struct {
	Name   string
	Fields map[string]any
}

// MetricsSink keeps recorded events in memory.
type MetricsSink struct {
	mu     sync.RWMutex
	events []MetricsEvent
}

// NewMetricsSink creates a new in-memory metrics sink.
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

// Record stores an event.
func (s *MetricsSink) Record(_ context.Context, event string, fields map[string]any) error {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, MetricsEvent{Name: event, Fields: copied})
	return nil
}

// Events returns a copy of the recorded events in order.
func (s *MetricsSink) Events() []MetricsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MetricsEvent(nil), s.events...)
}
