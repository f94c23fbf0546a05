// Package tui provides an interactive terminal user interface for
// threadsearch. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// Ports aggregates the driving ports and collaborators the TUI uses.
type Ports struct {
	// Search creates live search sessions. Required.
	Search driving.SearchService

	// Settings supplies the default accounts when none are given.
	Settings driving.SettingsService

	// Threads re-reads an opened thread from the local cache.
	Threads driving.ThreadService

	// Focus receives the selected thread. When nil the selection is
	// reported to the active session directly.
	Focus search.Focuser
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	searchService driving.SearchService,
	settings driving.SettingsService,
	threads driving.ThreadService,
) *Ports {
	return &Ports{
		Search:   searchService,
		Settings: settings,
		Threads:  threads,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
