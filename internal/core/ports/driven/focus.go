package driven

import "github.com/custodia-labs/threadsearch/internal/core/domain"

// FocusTracker follows the item the user has selected in a result view.
type FocusTracker interface {
	// Subscribe registers onChanged and returns a function that removes it.
	Subscribe(onChanged func()) (unsubscribe func())

	// CurrentlyFocused returns the focused item of kind, if any.
	CurrentlyFocused(kind domain.FocusKind) (*domain.Thread, bool)
}
