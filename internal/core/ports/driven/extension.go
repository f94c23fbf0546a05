package driven

import (
	"context"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// SearchContributor is an extension that contributes thread IDs to searches.
type SearchContributor interface {
	// Name identifies the contributor in logs.
	Name() string

	// ObserveIDsForQuery streams batches of thread IDs relevant to query.
	// Entries may be nil. The channel is closed when the stream ends or ctx
	// is cancelled.
	ObserveIDsForQuery(ctx context.Context, query string) (<-chan []*string, error)
}

// ExtensionRegistry looks up registered extensions.
type ExtensionRegistry interface {
	// Contributors returns a snapshot of the contributors registered under role.
	Contributors(role domain.ExtensionRole) []SearchContributor
}
