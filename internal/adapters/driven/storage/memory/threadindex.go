package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// Ensure ThreadIndex implements the interfaces.
var (
	_ driven.ThreadStore         = (*ThreadIndex)(nil)
	_ driven.ThreadQueryExecutor = (*ThreadIndex)(nil)
)

// ThreadIndex is an in-memory thread cache that can also execute local
// search queries. Matching is case-insensitive substring matching.
type ThreadIndex struct {
	mu      sync.RWMutex
	threads map[string]domain.Thread
}

// NewThreadIndex creates a new in-memory thread index.
func NewThreadIndex() *ThreadIndex {
	return &ThreadIndex{
		threads: make(map[string]domain.Thread),
	}
}

// SaveThreads stores or updates threads.
func (s *ThreadIndex) SaveThreads(_ context.Context, threads []domain.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range threads {
		if threads[i].ID == "" {
			return domain.ErrInvalidInput
		}
		s.threads[threads[i].ID] = threads[i]
	}
	return nil
}

// GetThread retrieves a thread by ID.
func (s *ThreadIndex) GetThread(_ context.Context, id string) (*domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

// DeleteThread removes a thread.
func (s *ThreadIndex) DeleteThread(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.threads, id)
	return nil
}

// ListRecent returns up to limit threads, most recent first.
func (s *ThreadIndex) ListRecent(_ context.Context, limit int) ([]domain.Thread, error) {
	s.mu.RLock()
	out := make([]domain.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sortByRecency(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Query executes a thread query.
func (s *ThreadIndex) Query(ctx context.Context, q domain.ThreadQuery) ([]domain.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scope map[string]struct{}
	if q.IDs != nil {
		scope = make(map[string]struct{}, len(q.IDs))
		for _, id := range q.IDs {
			scope[id] = struct{}{}
		}
	}

	s.mu.RLock()
	var out []domain.Thread
	for id, t := range s.threads {
		if scope != nil {
			if _, ok := scope[id]; !ok {
				continue
			}
		}
		if q.AccountID != "" && t.AccountID != q.AccountID {
			continue
		}
		if q.Filter != nil && !Matches(q.Filter, &t) {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sortByRecency(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Matches reports whether t satisfies expr.
//
// Terms, phrases and text match the subject, snippet or any participant.
// "from" matches the first participant and "to" any other participant.
func Matches(expr domain.FilterExpr, t *domain.Thread) bool {
	switch f := expr.(type) {
	case *domain.TextFilter:
		return containsFold(haystack(t), f.Text)
	case *domain.Filter:
		return matchesFilter(f, t)
	default:
		return false
	}
}

func matchesFilter(f *domain.Filter, t *domain.Thread) bool {
	text := haystack(t)
	for _, term := range f.Terms {
		if !containsFold(text, term) {
			return false
		}
	}
	for _, p := range f.Phrases {
		if !containsFold(text, p) {
			return false
		}
	}
	for _, e := range f.Excluded {
		if containsFold(text, e) {
			return false
		}
	}
	for _, fm := range f.Fields {
		if fieldMatches(fm, t) == fm.Negated {
			return false
		}
	}
	if len(f.Accounts) > 0 && !containsString(f.Accounts, t.AccountID) {
		return false
	}
	if f.Unread != nil && t.Unread != *f.Unread {
		return false
	}
	return true
}

func fieldMatches(fm domain.FieldMatch, t *domain.Thread) bool {
	switch fm.Field {
	case domain.FieldSubject:
		return containsFold(t.Subject, fm.Value)
	case domain.FieldFrom:
		return len(t.Participants) > 0 && containsFold(t.Participants[0], fm.Value)
	case domain.FieldTo:
		for i := 1; i < len(t.Participants); i++ {
			if containsFold(t.Participants[i], fm.Value) {
				return true
			}
		}
	}
	return false
}

func haystack(t *domain.Thread) string {
	return t.Subject + "\n" + t.Snippet + "\n" + strings.Join(t.Participants, "\n")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortByRecency(threads []domain.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i].LastMessageAt, threads[j].LastMessageAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return threads[i].ID < threads[j].ID
	})
}
