// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// SearchRequested asks the search view to start a session for Query.
type SearchRequested struct {
	Query string
}

// SessionStarted is sent once a session has fanned out to its sources.
type SessionStarted struct {
	SessionID string
	Query     string
	Accounts  []string
}

// SnapshotUpdated carries the latest full result set of a session.
// Snapshots from a session other than the active one are ignored.
type SnapshotUpdated struct {
	SessionID string
	Threads   []domain.Thread
}

// SessionCompleted is sent when every account of a session has finished.
type SessionCompleted struct {
	SessionID string
}

// ThreadOpened is sent when a thread is chosen from the result list.
type ThreadOpened struct {
	Thread domain.Thread
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the search input and live results view.
	ViewSearch ViewType = iota
	// ViewThread shows a single thread.
	ViewThread
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewThread:
		return "thread"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ThreadLoaded carries a thread re-read from the local cache.
type ThreadLoaded struct {
	Thread *domain.Thread
	Err    error
}
