package services

import (
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// sessionState accumulates telemetry for one search session. It is only
// mutated through the transition methods below, from the session's event
// loop.
type sessionState struct {
	searchStartedAt        time.Time
	localResultsReceivedAt time.Time
	firstRemoteResultsAt   time.Time
	firstThreadSelectedAt  time.Time

	localResultsCount  int
	remoteResultsCount int
	focusedItemCount   int

	lastFocusedID string
}

// started reports whether a search was ever started.
func (s *sessionState) started() bool {
	return !s.searchStartedAt.IsZero()
}

func (s *sessionState) startSearch(now time.Time) {
	*s = sessionState{searchStartedAt: now}
}

// recordLocal notes the first local resolution. Later calls are ignored.
func (s *sessionState) recordLocal(now time.Time, count int) bool {
	if !s.localResultsReceivedAt.IsZero() {
		return false
	}
	s.localResultsReceivedAt = now
	s.localResultsCount = count
	return true
}

func (s *sessionState) recordRemoteBatch(now time.Time, count int) {
	if s.firstRemoteResultsAt.IsZero() {
		s.firstRemoteResultsAt = now
	}
	s.remoteResultsCount += count
}

// recordFocus counts item when it differs from the last focused item.
// A nil item clears the last focused item without counting.
func (s *sessionState) recordFocus(now time.Time, item *domain.Thread) bool {
	if item == nil {
		s.lastFocusedID = ""
		return false
	}
	if item.ID == s.lastFocusedID {
		return false
	}
	if s.focusedItemCount == 0 {
		s.firstThreadSelectedAt = now
	}
	s.focusedItemCount++
	s.lastFocusedID = item.ID
	return true
}

func (s *sessionState) reset() {
	*s = sessionState{}
}
