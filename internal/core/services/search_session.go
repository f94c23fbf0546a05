package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// Ensure SearchSession implements the interface.
var _ driving.SearchSession = (*SearchSession)(nil)

const (
	// eventBuffer is the capacity of a session's event queue.
	eventBuffer = 64

	// settleTimeout bounds how long settle waits for local queries.
	settleTimeout = 2 * time.Second
)

// Events delivered to the session loop. Sources run on their own
// goroutines and only ever communicate with the session through these.
type (
	localResolvedEvent struct {
		seq     uint64
		initial bool
		at      time.Time
		threads []domain.Thread
		err     error
	}

	remoteBatchEvent struct {
		source  *RemoteStreamSource
		at      time.Time
		threads []domain.Thread
	}

	remoteStatusEvent struct {
		source *RemoteStreamSource
		status domain.StreamStatus
	}

	extensionBatchEvent struct {
		name string
		ids  []string
	}

	focusEvent struct {
		item *domain.Thread
		at   time.Time
	}

	barrierEvent struct {
		ack chan struct{}
	}
)

// sessionDeps are the collaborators a session is built from.
type sessionDeps struct {
	local     *LocalSearchSource
	connector driven.StreamConnector
	registry  driven.ExtensionRegistry
	focus     driven.FocusTracker
	cache     driven.ThreadStore
	reporter  *MetricsReporter
	now       func() time.Time
}

// SearchSession aggregates one query across the local cache, one remote
// stream per account and every registered search contributor.
//
// All state changes happen on a single event loop goroutine started by
// Start. Public methods are safe for concurrent use. Listeners registered
// with Subscribe run on the loop and must not call End.
type SearchSession struct {
	id       string
	query    string
	accounts []string
	deps     sessionDeps

	// Lifecycle, guarded by mu.
	mu      sync.Mutex
	started bool
	ended   bool
	endOnce  sync.Once
	stopOnce sync.Once
	cancel   context.CancelFunc
	ctx     context.Context

	events    chan any
	stop      chan struct{}
	done      chan struct{}
	completed chan struct{}

	listenersMu sync.Mutex
	listeners   map[int]func([]domain.Thread)
	nextID      int

	snapshot atomic.Pointer[[]domain.Thread]
	metrics  atomic.Pointer[domain.MetricsSnapshot]

	// Owned by the event loop.
	results        *ResultSet
	state          sessionState
	remotes        []*RemoteStreamSource
	feeds          []*ExtensionFeed
	unsubFocus     func()
	issuedSeq      uint64
	appliedSeq     uint64
	completedFired bool

	// Local queries issued but not yet handled by the loop.
	inflight atomic.Int64
}

func newSearchSession(id, query string, accounts []string, deps sessionDeps) *SearchSession {
	if deps.now == nil {
		deps.now = time.Now
	}
	s := &SearchSession{
		id:        id,
		query:     query,
		accounts:  append([]string(nil), accounts...),
		deps:      deps,
		events:    make(chan any, eventBuffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		completed: make(chan struct{}),
		listeners: make(map[int]func([]domain.Thread)),
		results:   NewResultSet(),
	}
	empty := []domain.Thread{}
	s.snapshot.Store(&empty)
	s.results.Subscribe(s.publish)
	return s
}

// ID returns the session identifier.
func (s *SearchSession) ID() string { return s.id }

// Query returns the query text.
func (s *SearchSession) Query() string { return s.query }

// Accounts returns the searched account IDs.
func (s *SearchSession) Accounts() []string {
	return append([]string(nil), s.accounts...)
}

// Completed is closed once every remote stream has finished.
// It is never closed for a session ended before that point.
func (s *SearchSession) Completed() <-chan struct{} { return s.completed }

// Snapshot returns the most recent result set.
func (s *SearchSession) Snapshot() []domain.Thread {
	current := *s.snapshot.Load()
	out := make([]domain.Thread, len(current))
	copy(out, current)
	return out
}

// Metrics returns the snapshot reported at End, or nil.
func (s *SearchSession) Metrics() *domain.MetricsSnapshot {
	return s.metrics.Load()
}

// Subscribe registers a listener for full result snapshots.
func (s *SearchSession) Subscribe(onSnapshot func([]domain.Thread)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = onSnapshot
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// Start launches every source. It may be called once.
func (s *SearchSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return domain.ErrSessionEnded
	}
	if s.started {
		return domain.ErrSessionStarted
	}
	s.started = true

	logger.Section("Search Session")
	logger.Debug("Session %s: query=%q accounts=%v", s.id, s.query, s.accounts)

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.state.startSearch(s.deps.now())

	var failed []*RemoteStreamSource
	path := StreamingSearchPath(s.query)
	for _, account := range s.accounts {
		src := newRemoteStreamSource(account, nil)
		conn, err := s.deps.connector.Connect(account, path, driven.StreamHandlers{
			OnBatch: func(threads []domain.Thread) {
				s.post(remoteBatchEvent{source: src, at: s.deps.now(), threads: threads})
			},
			OnStatusChanged: func(status domain.StreamStatus) {
				s.post(remoteStatusEvent{source: src, status: status})
			},
		})
		if err != nil {
			logger.Warn("Connecting stream for %s: %v", account, err)
			failed = append(failed, src)
		}
		src.conn = conn
		s.remotes = append(s.remotes, src)
	}

	if s.deps.registry != nil {
		for _, c := range s.deps.registry.Contributors(domain.RoleSearchContributor) {
			s.feeds = append(s.feeds, newExtensionFeed(c, s.query))
		}
	}

	if s.deps.focus != nil {
		tracker := s.deps.focus
		s.unsubFocus = tracker.Subscribe(func() {
			item, _ := tracker.CurrentlyFocused(domain.FocusThread)
			s.post(focusEvent{item: item, at: s.deps.now()})
		})
	}

	s.issuedSeq = 1
	sessCtx := s.ctx
	go s.loop(sessCtx)

	s.runLocal(sessCtx, 1, true, func(ctx context.Context) ([]domain.Thread, error) {
		return s.deps.local.Run(ctx, s.query, s.accounts)
	})

	for _, src := range failed {
		s.post(remoteStatusEvent{source: src, status: domain.StreamClosed})
	}
	for _, src := range s.remotes {
		if src.conn == nil {
			continue
		}
		go func(src *RemoteStreamSource, conn driven.StreamConnection) {
			if err := conn.Start(); err != nil {
				logger.Warn("Starting stream for %s: %v", src.accountID, err)
				s.post(remoteStatusEvent{source: src, status: domain.StreamClosed})
			}
		}(src, src.conn)
	}

	for _, feed := range s.feeds {
		go feed.Run(sessCtx, func(ids []string) {
			s.post(extensionBatchEvent{name: feed.Name(), ids: ids})
		})
	}

	logger.Debug("Session %s started: %d streams, %d contributors", s.id, len(s.remotes), len(s.feeds))
	return nil
}

// OnFocusChanged records item as the focused result.
func (s *SearchSession) OnFocusChanged(item *domain.Thread) {
	s.post(focusEvent{item: item, at: s.deps.now()})
}

// End tears the session down: metrics are reported, streams closed and
// subscriptions cancelled. Calls after the first are no-ops.
func (s *SearchSession) End() {
	s.endOnce.Do(func() {
		s.mu.Lock()
		started := s.started
		s.ended = true
		s.mu.Unlock()

		if !started {
			logger.Debug("Session %s ended before start", s.id)
			return
		}
		s.halt()
		<-s.done
	})
}

// halt stops event delivery. Teardown runs only after halt, so callbacks
// fired while closing sources never block on a full queue.
func (s *SearchSession) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// post delivers an event to the loop, dropping it once the session stops.
func (s *SearchSession) post(ev any) {
	select {
	case <-s.stop:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.stop:
	case <-s.done:
	}
}

func (s *SearchSession) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			s.teardown()
			return
		case <-ctx.Done():
			logger.Debug("Session %s cancelled: %v", s.id, ctx.Err())
			s.halt()
			s.teardown()
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *SearchSession) handle(ev any) {
	switch e := ev.(type) {
	case localResolvedEvent:
		s.onLocalResolved(e)
		s.inflight.Add(-1)
	case remoteBatchEvent:
		s.onRemoteBatch(e)
	case remoteStatusEvent:
		s.onRemoteStatus(e)
	case extensionBatchEvent:
		logger.Debug("Contributor %s added %d ids", e.name, len(e.ids))
		s.requery(e.ids)
	case focusEvent:
		s.onFocus(e)
	case barrierEvent:
		close(e.ack)
	}
}

func (s *SearchSession) onLocalResolved(e localResolvedEvent) {
	if e.err != nil {
		logger.Warn("Session %s: %v", s.id, e.err)
		return
	}
	if e.initial {
		s.state.recordLocal(e.at, len(e.threads))
	}
	if e.seq < s.appliedSeq {
		logger.Debug("Discarding stale local result #%d (applied #%d)", e.seq, s.appliedSeq)
		s.refold(e.threads)
		return
	}
	s.appliedSeq = e.seq
	s.results.ReplaceAll(e.threads)
}

// refold re-queries for threads from a discarded result that the current
// set does not hold.
func (s *SearchSession) refold(threads []domain.Thread) {
	held := make(map[string]struct{}, s.results.Len())
	for _, id := range s.results.IDs() {
		held[id] = struct{}{}
	}
	var missing []string
	for i := range threads {
		if _, ok := held[threads[i].ID]; !ok {
			missing = append(missing, threads[i].ID)
		}
	}
	if len(missing) > 0 {
		s.requery(missing)
	}
}

func (s *SearchSession) onRemoteBatch(e remoteBatchEvent) {
	if !e.source.ApplyBatch(e.threads) {
		return
	}
	s.state.recordRemoteBatch(e.at, len(e.threads))
	if len(e.threads) == 0 {
		return
	}
	logger.Debug("Stream %s delivered %d threads", e.source.accountID, len(e.threads))

	ids := s.results.IDsUnion(domain.ThreadIDs(e.threads))
	batch := e.threads
	s.issuedSeq++
	s.runLocal(s.ctx, s.issuedSeq, false, func(ctx context.Context) ([]domain.Thread, error) {
		if s.deps.cache != nil {
			if err := s.deps.cache.SaveThreads(ctx, batch); err != nil {
				logger.Warn("Caching remote threads: %v", err)
			}
		}
		return s.deps.local.RunScoped(ctx, ids)
	})
}

func (s *SearchSession) onRemoteStatus(e remoteStatusEvent) {
	if !e.source.ApplyStatus(e.status) {
		logger.Debug("Stream %s status %s", e.source.accountID, e.status)
		return
	}
	logger.Debug("Stream %s finished (%s)", e.source.accountID, e.status)

	for _, src := range s.remotes {
		if !src.Finished() {
			return
		}
	}
	if !s.completedFired {
		s.completedFired = true
		logger.Debug("Session %s completed", s.id)
		close(s.completed)
	}
}

func (s *SearchSession) onFocus(e focusEvent) {
	if s.state.recordFocus(e.at, e.item) {
		logger.Debug("Focused thread %s", e.item.ID)
	}
}

// requery folds ids into the current set and re-reads them from the
// local cache.
func (s *SearchSession) requery(ids []string) {
	union := s.results.IDsUnion(ids)
	s.issuedSeq++
	s.runLocal(s.ctx, s.issuedSeq, false, func(ctx context.Context) ([]domain.Thread, error) {
		return s.deps.local.RunScoped(ctx, union)
	})
}

func (s *SearchSession) runLocal(
	ctx context.Context,
	seq uint64,
	initial bool,
	run func(context.Context) ([]domain.Thread, error),
) {
	s.inflight.Add(1)
	go func() {
		threads, err := run(ctx)
		s.post(localResolvedEvent{seq: seq, initial: initial, at: s.deps.now(), threads: threads, err: err})
	}()
}

// flush waits until every event queued before the call has been handled.
func (s *SearchSession) flush() {
	ack := make(chan struct{})
	s.post(barrierEvent{ack: ack})
	select {
	case <-ack:
	case <-s.done:
	}
}

// settle waits briefly for in-flight local queries to be applied.
func (s *SearchSession) settle(ctx context.Context) {
	deadline := time.NewTimer(settleTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		s.flush()
		if s.inflight.Load() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-s.done:
			return
		case <-tick.C:
		}
	}
}

func (s *SearchSession) publish(threads []domain.Thread) {
	s.snapshot.Store(&threads)

	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	fns := make([]func([]domain.Thread), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		out := make([]domain.Thread, len(threads))
		copy(out, threads)
		fn(out)
	}
}

func (s *SearchSession) teardown() {
	logger.Debug("Ending session %s", s.id)

	snap := s.deps.reporter.Report(context.WithoutCancel(s.ctx), s.id, &s.state, s.deps.now())
	if snap != nil {
		s.metrics.Store(snap)
	}

	for _, src := range s.remotes {
		src.Close()
	}

	if s.unsubFocus != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn("Removing focus listener panicked: %v", r)
				}
			}()
			s.unsubFocus()
		}()
		s.unsubFocus = nil
	}

	s.cancel()
}
