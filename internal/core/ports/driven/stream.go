package driven

import "github.com/custodia-labs/threadsearch/internal/core/domain"

// StreamHandlers receives events from a streaming connection.
// Handlers may be invoked from a background goroutine.
type StreamHandlers struct {
	// OnBatch is called for every batch of result rows.
	OnBatch func(threads []domain.Thread)

	// OnStatusChanged is called on every status transition.
	OnStatusChanged func(status domain.StreamStatus)
}

// StreamConnector creates streaming search connections, one per account.
type StreamConnector interface {
	// Connect prepares a connection for accountID at path
	// (e.g. "/search/streaming?q=foo"). No I/O happens until Start.
	Connect(accountID, path string, handlers StreamHandlers) (StreamConnection, error)
}

// StreamConnection is one long-lived streaming search.
type StreamConnection interface {
	// Start opens the connection and begins delivering events.
	Start() error

	// End closes the connection. It must be safe to call more than once.
	End() error
}
