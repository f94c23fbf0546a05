// Package extensions holds the extension registry and the built-in
// search contributors.
package extensions

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtensionRegistry = (*Registry)(nil)

// Registry stores extensions by role. Contributors keep registration order.
type Registry struct {
	mu     sync.RWMutex
	byRole map[domain.ExtensionRole][]driven.SearchContributor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byRole: make(map[domain.ExtensionRole][]driven.SearchContributor)}
}

// Register adds a contributor under role. A contributor with the same
// name is replaced in place.
func (r *Registry) Register(role domain.ExtensionRole, c driven.SearchContributor) error {
	if c == nil {
		return fmt.Errorf("%w: nil contributor", domain.ErrInvalidInput)
	}
	name := c.Name()
	if name == "" {
		return fmt.Errorf("%w: contributor has no name", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byRole[role]
	for i, existing := range list {
		if existing.Name() == name {
			list[i] = c
			return nil
		}
	}
	r.byRole[role] = append(list, c)
	return nil
}

// Unregister removes the contributor called name from role.
// Returns false if it was not registered.
func (r *Registry) Unregister(role domain.ExtensionRole, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byRole[role]
	for i, existing := range list {
		if existing.Name() == name {
			r.byRole[role] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Contributors returns a snapshot of the contributors registered under role.
func (r *Registry) Contributors(role domain.ExtensionRole) []driven.SearchContributor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byRole[role]
	if len(list) == 0 {
		return nil
	}
	out := make([]driven.SearchContributor, len(list))
	copy(out, list)
	return out
}
