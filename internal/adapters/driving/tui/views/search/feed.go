package search

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// snapshotFeed hands session snapshots to the Bubbletea loop. It holds at
// most one pending snapshot; a newer one replaces it, so a slow render never
// blocks the session's event loop.
type snapshotFeed struct {
	sessionID string
	ch        chan []domain.Thread
	done      chan struct{}
	once      sync.Once
}

func newSnapshotFeed(sessionID string) *snapshotFeed {
	return &snapshotFeed{
		sessionID: sessionID,
		ch:        make(chan []domain.Thread, 1),
		done:      make(chan struct{}),
	}
}

// push is the session listener.
func (f *snapshotFeed) push(threads []domain.Thread) {
	for {
		if f.closed() {
			return
		}
		select {
		case f.ch <- threads:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// wait returns a command that delivers the next snapshot.
func (f *snapshotFeed) wait() tea.Cmd {
	return func() tea.Msg {
		if f.closed() {
			return nil
		}
		select {
		case threads := <-f.ch:
			return messages.SnapshotUpdated{SessionID: f.sessionID, Threads: threads}
		case <-f.done:
			return nil
		}
	}
}

// completion returns a command that fires once the session completes.
func (f *snapshotFeed) completion(session driving.SearchSession) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-session.Completed():
			return messages.SessionCompleted{SessionID: f.sessionID}
		case <-f.done:
			return nil
		}
	}
}

func (f *snapshotFeed) closed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *snapshotFeed) close() {
	f.once.Do(func() { close(f.done) })
}
