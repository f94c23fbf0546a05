package driven

import (
	"context"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// MetricsSink records telemetry events.
type MetricsSink interface {
	// Record stores one event with its numeric or structured fields.
	// Duration fields are already clipped by the caller.
	Record(ctx context.Context, event string, fields map[string]any) error
}

// MetricsStore is a MetricsSink that can also list recorded sessions.
type MetricsStore interface {
	MetricsSink

	// ListMetrics returns up to limit recorded sessions, newest first.
	ListMetrics(ctx context.Context, limit int) ([]domain.MetricsSnapshot, error)
}
