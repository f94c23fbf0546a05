package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockThreadIndex implements driven.ThreadQueryExecutor and driven.ThreadStore.
type mockThreadIndex struct {
	mu      sync.Mutex
	threads map[string]domain.Thread
	queries []domain.ThreadQuery
	err     error

	// gate, when set, is consulted before every query and may block it.
	gate func(q domain.ThreadQuery)
}

func newMockThreadIndex(threads ...domain.Thread) *mockThreadIndex {
	m := &mockThreadIndex{threads: make(map[string]domain.Thread)}
	for _, t := range threads {
		m.threads[t.ID] = t
	}
	return m
}

func (m *mockThreadIndex) Query(ctx context.Context, q domain.ThreadQuery) ([]domain.Thread, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		gate(q)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var out []domain.Thread
	if len(q.IDs) > 0 {
		for _, id := range q.IDs {
			if t, ok := m.threads[id]; ok {
				out = append(out, t)
			}
		}
	} else {
		for _, t := range m.threads {
			if q.AccountID != "" && t.AccountID != q.AccountID {
				continue
			}
			if matchesExpr(q.Filter, t) {
				out = append(out, t)
			}
		}
	}
	sortThreads(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matchesExpr(expr domain.FilterExpr, t domain.Thread) bool {
	var needles []string
	switch f := expr.(type) {
	case *domain.TextFilter:
		needles = []string{f.Text}
	case *domain.Filter:
		needles = f.Terms
	default:
		return false
	}
	for _, n := range needles {
		if strings.Contains(strings.ToLower(t.Subject), strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func (m *mockThreadIndex) SaveThreads(ctx context.Context, threads []domain.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range threads {
		m.threads[t.ID] = t
	}
	return nil
}

func (m *mockThreadIndex) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *mockThreadIndex) DeleteThread(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, id)
	return nil
}

func (m *mockThreadIndex) ListRecent(ctx context.Context, limit int) ([]domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Thread, 0, len(m.threads))
	for _, t := range m.threads {
		out = append(out, t)
	}
	sortThreads(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockThreadIndex) Queries() []domain.ThreadQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ThreadQuery(nil), m.queries...)
}

// mockTranslator implements driven.QueryTranslator.
type mockTranslator struct {
	filter *domain.Filter
	err    error
	panics bool
}

func (m *mockTranslator) Parse(text string) (*domain.Filter, error) {
	if m.panics {
		panic("translator exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.filter, nil
}

// mockConnector implements driven.StreamConnector.
type mockConnector struct {
	mu         sync.Mutex
	conns      map[string]*mockConn
	paths      []string
	connectErr map[string]error
	startErr   map[string]error

	// scripts run inside Start for the matching account.
	scripts map[string]func(c *mockConn)
}

func newMockConnector() *mockConnector {
	return &mockConnector{
		conns:      make(map[string]*mockConn),
		connectErr: make(map[string]error),
		startErr:   make(map[string]error),
		scripts:    make(map[string]func(c *mockConn)),
	}
}

func (m *mockConnector) Connect(accountID, path string, handlers driven.StreamHandlers) (driven.StreamConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	if err := m.connectErr[accountID]; err != nil {
		return nil, err
	}
	c := &mockConn{handlers: handlers, startErr: m.startErr[accountID], script: m.scripts[accountID]}
	m.conns[accountID] = c
	return c, nil
}

func (m *mockConnector) conn(accountID string) *mockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[accountID]
}

// mockConn implements driven.StreamConnection.
type mockConn struct {
	mu       sync.Mutex
	handlers driven.StreamHandlers
	startErr error
	script   func(c *mockConn)
	starts   int
	ends     int

	// endStatus, when set, is reported from End on the caller's goroutine.
	endStatus domain.StreamStatus
}

func (c *mockConn) Start() error {
	c.mu.Lock()
	c.starts++
	c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	if c.script != nil {
		c.script(c)
	}
	return nil
}

func (c *mockConn) End() error {
	c.mu.Lock()
	c.ends++
	status := c.endStatus
	c.mu.Unlock()

	if status != "" {
		c.handlers.OnStatusChanged(status)
	}
	return nil
}

func (c *mockConn) Ends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ends
}

func (c *mockConn) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *mockConn) batch(threads ...domain.Thread) {
	c.handlers.OnBatch(threads)
}

func (c *mockConn) status(s domain.StreamStatus) {
	c.handlers.OnStatusChanged(s)
}

// mockContributor implements driven.SearchContributor.
type mockContributor struct {
	name    string
	batches chan []*string
	err     error
	panics  bool
}

func newMockContributor(name string) *mockContributor {
	return &mockContributor{name: name, batches: make(chan []*string, 8)}
}

func (m *mockContributor) Name() string { return m.name }

func (m *mockContributor) ObserveIDsForQuery(ctx context.Context, query string) (<-chan []*string, error) {
	if m.panics {
		panic("contributor exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.batches, nil
}

// mockRegistry implements driven.ExtensionRegistry.
type mockRegistry struct {
	contributors []driven.SearchContributor
}

func (m *mockRegistry) Contributors(role domain.ExtensionRole) []driven.SearchContributor {
	if role != domain.RoleSearchContributor {
		return nil
	}
	return append([]driven.SearchContributor(nil), m.contributors...)
}

// mockFocus implements driven.FocusTracker.
type mockFocus struct {
	mu        sync.Mutex
	focused   *domain.Thread
	listeners map[int]func()
	next      int
}

func newMockFocus() *mockFocus {
	return &mockFocus{listeners: make(map[int]func())}
}

func (m *mockFocus) Subscribe(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *mockFocus) CurrentlyFocused(kind domain.FocusKind) (*domain.Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.focused == nil || kind != domain.FocusThread {
		return nil, false
	}
	t := *m.focused
	return &t, true
}

func (m *mockFocus) Focus(t *domain.Thread) {
	m.mu.Lock()
	m.focused = t
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *mockFocus) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// mockSink implements driven.MetricsSink.
type mockSink struct {
	mu     sync.Mutex
	events []string
	fields []map[string]any
	err    error
}

func (m *mockSink) Record(ctx context.Context, event string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.fields = append(m.fields, fields)
	return m.err
}

func (m *mockSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

// thread builds a test thread whose recency follows minutesAgo.
func thread(id, account, subject string, minutesAgo int) domain.Thread {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Thread{
		ID:            id,
		AccountID:     account,
		Subject:       subject,
		LastMessageAt: base.Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func strPtr(s string) *string { return &s }
