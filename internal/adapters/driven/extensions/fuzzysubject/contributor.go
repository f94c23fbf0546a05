// Package fuzzysubject is a search contributor that fuzzy-matches the
// query against the subjects of recently cached threads.
package fuzzysubject

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// Name is the contributor name.
const Name = "fuzzy-subject"

// Defaults.
const (
	DefaultWindow     = 500
	DefaultMaxResults = 25
)

// Ensure Contributor implements the interface.
var _ driven.SearchContributor = (*Contributor)(nil)

// Contributor emits a single batch of IDs whose subjects fuzzy-match
// the query.
type Contributor struct {
	store      driven.ThreadStore
	window     int
	maxResults int
}

// New creates a contributor over store. window bounds how many recent
// threads are considered; zero or less uses DefaultWindow.
func New(store driven.ThreadStore, window int) *Contributor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Contributor{store: store, window: window, maxResults: DefaultMaxResults}
}

// Name implements driven.SearchContributor.
func (c *Contributor) Name() string { return Name }

type subjectSource []domain.Thread

func (s subjectSource) String(i int) string { return strings.ToLower(s[i].Subject) }
func (s subjectSource) Len() int            { return len(s) }

// pattern strips whitespace and operator tokens, keeping only the
// characters fuzzy matching should look for.
func pattern(query string) string {
	var b strings.Builder
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if strings.HasPrefix(tok, "-") || strings.Contains(tok, ":") {
			continue
		}
		b.WriteString(strings.Trim(tok, `"'`))
	}
	return b.String()
}

// ObserveIDsForQuery implements driven.SearchContributor. The returned
// channel carries at most one batch and is then closed.
func (c *Contributor) ObserveIDsForQuery(ctx context.Context, query string) (<-chan []*string, error) {
	out := make(chan []*string, 1)

	p := pattern(query)
	if p == "" {
		close(out)
		return out, nil
	}

	recent, err := c.store.ListRecent(ctx, c.window)
	if err != nil {
		return nil, fmt.Errorf("listing recent threads: %w", err)
	}

	matches := fuzzy.FindFrom(p, subjectSource(recent))
	if len(matches) > c.maxResults {
		matches = matches[:c.maxResults]
	}
	if len(matches) > 0 {
		batch := make([]*string, len(matches))
		for i, m := range matches {
			id := recent[m.Index].ID
			batch[i] = &id
		}
		out <- batch
	}
	close(out)
	return out, nil
}
