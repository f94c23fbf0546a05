package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService builds search sessions over the local cache, the remote
// streaming servers and the registered search contributors.
type SearchService struct {
	translator driven.QueryTranslator
	executor   driven.ThreadQueryExecutor
	connector  driven.StreamConnector
	settings   domain.SearchSettings

	registry driven.ExtensionRegistry
	focus    driven.FocusTracker
	cache    driven.ThreadStore
	sink     driven.MetricsSink

	now   func() time.Time
	newID func() string
}

// NewSearchService creates a new search service.
// The translator is optional (can be nil); queries then match as plain text.
func NewSearchService(
	translator driven.QueryTranslator,
	executor driven.ThreadQueryExecutor,
	connector driven.StreamConnector,
	settings domain.SearchSettings,
) *SearchService {
	return &SearchService{
		translator: translator,
		executor:   executor,
		connector:  connector,
		settings:   settings,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetExtensionRegistry sets the registry consulted for search contributors.
func (s *SearchService) SetExtensionRegistry(registry driven.ExtensionRegistry) {
	s.registry = registry
}

// SetFocusTracker sets the tracker sessions count selections from.
func (s *SearchService) SetFocusTracker(tracker driven.FocusTracker) {
	s.focus = tracker
}

// SetThreadCache sets the store remote rows are cached into before being
// read back through the local executor.
func (s *SearchService) SetThreadCache(cache driven.ThreadStore) {
	s.cache = cache
}

// SetMetricsSink sets where session telemetry is recorded.
func (s *SearchService) SetMetricsSink(sink driven.MetricsSink) {
	s.sink = sink
}

// NewSession builds an unstarted session for query across accounts.
func (s *SearchService) NewSession(query string, accounts []string) (driving.SearchSession, error) {
	return s.newSession(query, accounts)
}

func (s *SearchService) newSession(query string, accounts []string) (*SearchSession, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoShards
	}
	if s.executor == nil {
		return nil, domain.ErrSearchUnavailable
	}
	if s.connector == nil {
		return nil, fmt.Errorf("%w: no stream connector", domain.ErrSearchUnavailable)
	}

	return newSearchSession(s.newID(), query, accounts, sessionDeps{
		local:     NewLocalSearchSource(s.translator, s.executor, s.settings.LocalLimit),
		connector: s.connector,
		registry:  s.registry,
		focus:     s.focus,
		cache:     s.cache,
		reporter:  NewMetricsReporter(s.sink, s.settings),
		now:       s.now,
	}), nil
}

// Search runs a session until every account has finished streaming, the
// timeout elapses or ctx is cancelled. The session is always ended before
// returning.
func (s *SearchService) Search(
	ctx context.Context, query string, accounts []string, opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	session, err := s.newSession(query, accounts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.settings.CompletionTimeout
	}
	if timeout <= 0 {
		timeout = domain.DefaultCompletionTimeout
	}

	if err := session.Start(ctx); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	completed := false
	select {
	case <-session.Completed():
		completed = true
	case <-timer.C:
		logger.Debug("Session %s timed out after %s", session.ID(), timeout)
	case <-ctx.Done():
		logger.Debug("Session %s cancelled", session.ID())
	}

	// Completion can race the last local re-query; give it a moment to land.
	if completed {
		session.settle(ctx)
	}
	session.End()

	outcome := &domain.SearchOutcome{
		SessionID: session.ID(),
		Query:     session.Query(),
		Threads:   session.Snapshot(),
		Completed: completed,
		Metrics:   session.Metrics(),
	}
	if err := ctx.Err(); err != nil && !completed {
		return outcome, fmt.Errorf("search: %w", err)
	}
	return outcome, nil
}
