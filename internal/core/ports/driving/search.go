package driving

import (
	"context"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// SearchService creates search sessions and runs blocking searches.
type SearchService interface {
	// NewSession builds a session for query across accounts.
	// No source is started until Start is called on the session.
	NewSession(query string, accounts []string) (SearchSession, error)

	// Search runs a session until every account finishes, the timeout
	// elapses or ctx is cancelled, then ends it and returns the outcome.
	Search(ctx context.Context, query string, accounts []string, opts domain.SearchOptions) (*domain.SearchOutcome, error)
}

// SearchSession aggregates results for one query from every source.
type SearchSession interface {
	// ID returns the session identifier.
	ID() string

	// Query returns the query text.
	Query() string

	// Accounts returns the account (shard) IDs searched.
	Accounts() []string

	// Start fans the query out to all sources.
	Start(ctx context.Context) error

	// End tears the session down and reports metrics. Safe to call repeatedly.
	End()

	// Subscribe registers a listener for full result snapshots and returns
	// a function that removes it.
	Subscribe(onSnapshot func(threads []domain.Thread)) (unsubscribe func())

	// OnFocusChanged records that item is now the focused result.
	// A nil item clears focus.
	OnFocusChanged(item *domain.Thread)

	// Snapshot returns the current results.
	Snapshot() []domain.Thread

	// Completed is closed once every account has reached a terminal status.
	Completed() <-chan struct{}

	// Metrics returns the snapshot reported by End, if any.
	Metrics() *domain.MetricsSnapshot
}
