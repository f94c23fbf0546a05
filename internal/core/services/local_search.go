package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// LocalSearchSource runs queries against the local thread cache.
type LocalSearchSource struct {
	translator driven.QueryTranslator
	executor   driven.ThreadQueryExecutor
	limit      int
}

// NewLocalSearchSource creates a local source. The translator is optional;
// without one every query is matched as plain text.
func NewLocalSearchSource(
	translator driven.QueryTranslator,
	executor driven.ThreadQueryExecutor,
	limit int,
) *LocalSearchSource {
	if limit <= 0 {
		limit = domain.DefaultLocalLimit
	}
	return &LocalSearchSource{
		translator: translator,
		executor:   executor,
		limit:      limit,
	}
}

// Filter translates query into a filter expression. Translation failures
// never escape: the query falls back to a generic text match.
func (l *LocalSearchSource) Filter(query string) (expr domain.FilterExpr) {
	fallback := &domain.TextFilter{Text: query}
	if l.translator == nil {
		return fallback
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Query translator panicked on %q: %v", query, r)
			expr = fallback
		}
	}()

	filter, err := l.translator.Parse(query)
	if err != nil {
		logger.Debug("Falling back to text match for %q: %v", query, err)
		return fallback
	}
	if filter == nil || filter.IsEmpty() {
		return fallback
	}
	return filter
}

// Run executes the initial local query for query across accounts.
// The account filter is only applied when exactly one account is searched.
func (l *LocalSearchSource) Run(ctx context.Context, query string, accounts []string) ([]domain.Thread, error) {
	q := domain.ThreadQuery{
		Filter:   l.Filter(query),
		Distinct: true,
		OrderBy:  domain.OrderLastMessageDesc,
		Limit:    l.limit,
	}
	if len(accounts) == 1 {
		q.AccountID = accounts[0]
	}

	logger.Debug("Local query: %s (account=%q, limit=%d)", q.Filter.Describe(), q.AccountID, q.Limit)
	threads, err := l.executor.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("local search: %w", err)
	}
	return threads, nil
}

// RunScoped re-queries the local cache for exactly the given thread IDs.
// The result is not capped.
func (l *LocalSearchSource) RunScoped(ctx context.Context, ids []string) ([]domain.Thread, error) {
	if len(ids) == 0 {
		return []domain.Thread{}, nil
	}
	q := domain.ThreadQuery{
		IDs:      ids,
		Distinct: true,
		OrderBy:  domain.OrderLastMessageDesc,
	}

	logger.Debug("Scoped local query over %d ids", len(ids))
	threads, err := l.executor.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scoped local search: %w", err)
	}
	return threads, nil
}
