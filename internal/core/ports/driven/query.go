package driven

import (
	"context"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// QueryTranslator converts free text into a structured filter.
type QueryTranslator interface {
	// Parse translates text. Unsupported or malformed syntax returns an
	// error wrapping domain.ErrParse.
	Parse(text string) (*domain.Filter, error)
}

// ThreadQueryExecutor runs queries against the local thread cache.
// Backed by SQLite for persistent storage.
type ThreadQueryExecutor interface {
	// Query returns the threads matching q in the requested order.
	Query(ctx context.Context, q domain.ThreadQuery) ([]domain.Thread, error)
}

// ThreadStore persists threads in the local cache.
type ThreadStore interface {
	// SaveThreads stores or updates threads.
	SaveThreads(ctx context.Context, threads []domain.Thread) error

	// GetThread retrieves a thread by ID.
	GetThread(ctx context.Context, id string) (*domain.Thread, error)

	// DeleteThread removes a thread.
	DeleteThread(ctx context.Context, id string) error

	// ListRecent returns up to limit threads, most recent first.
	ListRecent(ctx context.Context, limit int) ([]domain.Thread, error)
}
