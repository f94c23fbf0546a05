package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// Default page size for listings.
const defaultListLimit = 20

// Ensure services implement the interfaces.
var (
	_ driving.ThreadService  = (*ThreadService)(nil)
	_ driving.MetricsService = (*MetricsService)(nil)
)

// ThreadService reads threads from the local cache.
type ThreadService struct {
	store driven.ThreadStore
}

// NewThreadService creates a new thread service.
func NewThreadService(store driven.ThreadStore) *ThreadService {
	return &ThreadService{store: store}
}

// Get retrieves a thread by ID.
func (s *ThreadService) Get(ctx context.Context, id string) (*domain.Thread, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty thread id", domain.ErrInvalidInput)
	}
	return s.store.GetThread(ctx, id)
}

// Recent returns up to limit threads, most recent first.
// A limit of zero or less uses the default page size.
func (s *ThreadService) Recent(ctx context.Context, limit int) ([]domain.Thread, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListRecent(ctx, limit)
}

// MetricsService lists recorded session telemetry.
type MetricsService struct {
	store driven.MetricsStore
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(store driven.MetricsStore) *MetricsService {
	return &MetricsService{store: store}
}

// Recent returns up to limit recorded sessions, newest first.
// A limit of zero or less uses the default page size.
func (s *MetricsService) Recent(ctx context.Context, limit int) ([]domain.MetricsSnapshot, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	snaps, err := s.store.ListMetrics(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	return snaps, nil
}
