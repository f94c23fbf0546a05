// Package focus tracks the item the user has selected in a result view.
package focus

import (
	"sort"
	"sync"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// Ensure Tracker implements the interface.
var _ driven.FocusTracker = (*Tracker)(nil)

// Tracker holds one focused item per kind and notifies listeners on every
// change. Listeners run synchronously, outside the lock, in subscription
// order.
type Tracker struct {
	mu        sync.Mutex
	focused   map[domain.FocusKind]domain.Thread
	listeners map[int]func()
	nextID    int
}

// NewTracker creates a tracker with nothing focused.
func NewTracker() *Tracker {
	return &Tracker{
		focused:   make(map[domain.FocusKind]domain.Thread),
		listeners: make(map[int]func()),
	}
}

// Subscribe implements driven.FocusTracker.
func (t *Tracker) Subscribe(onChanged func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.listeners[id] = onChanged

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.listeners, id)
		})
	}
}

// CurrentlyFocused implements driven.FocusTracker. The returned thread is
// a copy.
func (t *Tracker) CurrentlyFocused(kind domain.FocusKind) (*domain.Thread, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.focused[kind]
	if !ok {
		return nil, false
	}
	return &item, true
}

// Focus sets the focused item of kind. A nil item clears it.
func (t *Tracker) Focus(kind domain.FocusKind, item *domain.Thread) {
	t.mu.Lock()
	if item == nil {
		delete(t.focused, kind)
	} else {
		t.focused[kind] = *item
	}
	listeners := t.snapshotListeners()
	t.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Clear removes the focused item of kind.
func (t *Tracker) Clear(kind domain.FocusKind) {
	t.Focus(kind, nil)
}

// snapshotListeners must be called with mu held.
func (t *Tracker) snapshotListeners() []func() {
	ids := make([]int, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = t.listeners[id]
	}
	return fns
}
