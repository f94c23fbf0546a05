package driving

import (
	"context"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// ThreadService reads threads from the local cache.
type ThreadService interface {
	// Get retrieves a thread by ID.
	Get(ctx context.Context, id string) (*domain.Thread, error)

	// Recent returns up to limit threads, most recent first.
	Recent(ctx context.Context, limit int) ([]domain.Thread, error)
}

// MetricsService exposes recorded session telemetry.
type MetricsService interface {
	// Recent returns up to limit recorded sessions, newest first.
	Recent(ctx context.Context, limit int) ([]domain.MetricsSnapshot, error)
}
