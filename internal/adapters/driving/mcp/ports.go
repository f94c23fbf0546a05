package mcp

import (
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs blocking searches.
	Search driving.SearchService

	// Settings supplies the default accounts. Optional.
	Settings driving.SettingsService

	// Threads reads cached threads. Optional; thread resources and the
	// get_thread tool are not registered without it.
	Threads driving.ThreadService

	// Metrics lists recorded sessions. Optional.
	Metrics driving.MetricsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
