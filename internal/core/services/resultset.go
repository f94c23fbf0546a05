package services

import (
	"sort"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// ResultSet is an ordered collection of threads with unique IDs, sorted by
// most recent activity first. Every update is a full replace.
//
// A ResultSet is not safe for concurrent use; a SearchSession only touches
// it from its event loop.
type ResultSet struct {
	items     []domain.Thread
	listeners []resultListener
	nextID    int
}

type resultListener struct {
	id int
	fn func([]domain.Thread)
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{}
}

// ReplaceAll replaces the contents with items, deduplicated by ID and
// sorted by LastMessageAt descending, then notifies listeners.
// When an ID appears more than once the most recent copy is kept.
func (r *ResultSet) ReplaceAll(items []domain.Thread) {
	sorted := make([]domain.Thread, len(items))
	copy(sorted, items)
	sortThreads(sorted)

	seen := make(map[string]struct{}, len(sorted))
	deduped := sorted[:0]
	for i := range sorted {
		if _, dup := seen[sorted[i].ID]; dup {
			continue
		}
		seen[sorted[i].ID] = struct{}{}
		deduped = append(deduped, sorted[i])
	}
	r.items = deduped

	for _, l := range r.listeners {
		l.fn(r.Snapshot())
	}
}

// IDsUnion returns the held IDs together with extra, without duplicates.
// The order of the result is unspecified.
func (r *ResultSet) IDsUnion(extra []string) []string {
	seen := make(map[string]struct{}, len(r.items)+len(extra))
	union := make([]string, 0, len(r.items)+len(extra))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		union = append(union, id)
	}
	for i := range r.items {
		add(r.items[i].ID)
	}
	for _, id := range extra {
		add(id)
	}
	return union
}

// Snapshot returns a copy of the current contents.
func (r *ResultSet) Snapshot() []domain.Thread {
	out := make([]domain.Thread, len(r.items))
	copy(out, r.items)
	return out
}

// IDs returns the held IDs in display order.
func (r *ResultSet) IDs() []string {
	return domain.ThreadIDs(r.items)
}

// Len returns the number of threads held.
func (r *ResultSet) Len() int {
	return len(r.items)
}

// Subscribe registers fn to receive a snapshot after every ReplaceAll.
func (r *ResultSet) Subscribe(fn func([]domain.Thread)) func() {
	id := r.nextID
	r.nextID++
	r.listeners = append(r.listeners, resultListener{id: id, fn: fn})
	return func() {
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// sortThreads orders threads by LastMessageAt descending, then ID ascending.
func sortThreads(threads []domain.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i].LastMessageAt, threads[j].LastMessageAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return threads[i].ID < threads[j].ID
	})
}
