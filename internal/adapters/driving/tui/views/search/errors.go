package search

import "errors"

// Error definitions for the search view.
var (
	// ErrNoSearchService indicates that no search service was provided.
	ErrNoSearchService = errors.New("search service is required")

	// ErrNoAccounts indicates that there is nothing to search.
	ErrNoAccounts = errors.New("no accounts configured; run 'threadsearch accounts set <id>...'")
)
