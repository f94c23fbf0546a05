package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	mu       sync.Mutex
	sessions []*mockSession
	err      error
}

func (m *MockSearchService) NewSession(query string, accounts []string) (driving.SearchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s := newMockSession(query, accounts)
	s.id = query + "-" + string(rune('a'+len(m.sessions)))
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *MockSearchService) Search(
	ctx context.Context, query string, accounts []string, opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	return &domain.SearchOutcome{Query: query}, nil
}

func (m *MockSearchService) last() *mockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		return nil
	}
	return m.sessions[len(m.sessions)-1]
}

// mockSession implements driving.SearchSession for testing.
type mockSession struct {
	mu        sync.Mutex
	id        string
	query     string
	accounts  []string
	listener  func([]domain.Thread)
	focused   []*domain.Thread
	starts    int
	ends      int
	startErr  error
	completed chan struct{}
}

func newMockSession(query string, accounts []string) *mockSession {
	c := make(chan struct{})
	close(c)
	return &mockSession{query: query, accounts: accounts, completed: c}
}

func (s *mockSession) ID() string { return s.id }

func (s *mockSession) Query() string { return s.query }

func (s *mockSession) Accounts() []string { return s.accounts }

func (s *mockSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return s.startErr
}

func (s *mockSession) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ends++
}

func (s *mockSession) Subscribe(fn func([]domain.Thread)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listener = nil
	}
}

func (s *mockSession) OnFocusChanged(item *domain.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = append(s.focused, item)
}

func (s *mockSession) Snapshot() []domain.Thread { return nil }

func (s *mockSession) Completed() <-chan struct{} { return s.completed }

func (s *mockSession) Metrics() *domain.MetricsSnapshot { return nil }

func (s *mockSession) emit(threads ...domain.Thread) {
	s.mu.Lock()
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		fn(threads)
	}
}

func (s *mockSession) Ends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ends
}

func (s *mockSession) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	accounts []string
	err      error
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := domain.DefaultAppSettings()
	s.Accounts = m.accounts
	return &s, nil
}

func (m *mockSettings) Save(*domain.AppSettings) error { return nil }

func (m *mockSettings) SetAccounts([]string) error { return nil }

func (m *mockSettings) Validate() error { return nil }

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockFocuser implements Focuser for testing.
type mockFocuser struct {
	items []*domain.Thread
}

func (m *mockFocuser) Focus(kind domain.FocusKind, item *domain.Thread) {
	m.items = append(m.items, item)
}

func (m *mockFocuser) ids() []string {
	out := make([]string, len(m.items))
	for i, t := range m.items {
		if t != nil {
			out[i] = t.ID
		}
	}
	return out
}

func testThreads() []domain.Thread {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []domain.Thread{
		{ID: "t1", AccountID: "work", Subject: "Invoice March", LastMessageAt: now},
		{ID: "t2", AccountID: "work", Subject: "Invoice February", LastMessageAt: now.Add(-time.Hour)},
	}
}

// runCmd executes cmd and every command of any batch it produces.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runCmd(c)...)
	}
	return out
}

func newTestView(svc driving.SearchService, focuser Focuser) *View {
	v := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap(), svc, &mockSettings{accounts: []string{"work"}}, focuser)
	v.SetDimensions(100, 30)
	return v
}

func submit(t *testing.T, v *View, query string) tea.Cmd {
	t.Helper()
	v.SetQuery(query)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	return cmd
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil, nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
	assert.False(t, view.Ready())
	assert.True(t, view.InputFocused())
	assert.Nil(t, view.Session())
	assert.NotNil(t, view.Init())
}

func TestView_WithContext(t *testing.T) {
	view := NewView(nil, nil, nil, nil, nil)
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, view, view.WithContext(ctx))
	assert.Equal(t, ctx, view.ctx)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, nil, nil, nil, nil)

	updated, cmd := view.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.Ready())
	assert.Equal(t, 80, view.Width())
	assert.Equal(t, 24, view.Height())
}

func TestView_Submit_EmptyQuery(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)

	view.SetQuery("   ")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Nil(t, svc.last())
}

func TestView_Submit_NoSearchService(t *testing.T) {
	view := NewView(nil, nil, nil, nil, nil)
	view.SetQuery("invoice")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.ErrorIs(t, view.Err(), ErrNoSearchService)
}

func TestView_Submit_NoAccounts(t *testing.T) {
	svc := &MockSearchService{}
	view := NewView(nil, nil, svc, &mockSettings{}, nil)
	view.SetQuery("invoice")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.ErrorIs(t, view.Err(), ErrNoAccounts)
	assert.True(t, view.InputFocused())
}

func TestView_Submit_SettingsError(t *testing.T) {
	boom := errors.New("config unreadable")
	view := NewView(nil, nil, &MockSearchService{}, &mockSettings{err: boom}, nil)
	view.SetQuery("invoice")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.ErrorIs(t, view.Err(), boom)
}

func TestView_Submit_NewSessionError(t *testing.T) {
	svc := &MockSearchService{err: domain.ErrNoShards}
	view := newTestView(svc, nil)
	view.SetQuery("invoice")

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.ErrorIs(t, view.Err(), domain.ErrNoShards)
	assert.Equal(t, status.StateError, view.statusbar.State())
}

func TestView_Submit_StartsSession(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)

	cmd := submit(t, view, "  invoice ")

	session := svc.last()
	require.NotNil(t, session)
	assert.Equal(t, "invoice", session.query)
	assert.Equal(t, []string{"work"}, session.accounts)
	assert.Equal(t, session, view.Session())
	assert.False(t, view.InputFocused())
	assert.Equal(t, status.StateSearching, view.statusbar.State())

	session.emit(testThreads()...)
	msgs := runCmd(cmd)

	assert.Equal(t, 1, session.Starts())
	assert.Contains(t, msgs, messages.SessionStarted{
		SessionID: session.ID(), Query: "invoice", Accounts: []string{"work"},
	})
	assert.Contains(t, msgs, messages.SessionCompleted{SessionID: session.ID()})

	var snapshot *messages.SnapshotUpdated
	for _, m := range msgs {
		if s, ok := m.(messages.SnapshotUpdated); ok {
			snapshot = &s
		}
	}
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Threads, 2)
}

func TestView_Submit_ExplicitAccounts(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	view.SetAccounts([]string{"a", "b"})

	submit(t, view, "invoice")

	assert.Equal(t, []string{"a", "b"}, svc.last().accounts)
}

func TestView_Submit_StartFailure(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)

	cmd := submit(t, view, "invoice")
	svc.last().startErr = domain.ErrSessionEnded
	svc.last().emit()
	msgs := runCmd(cmd)

	assert.Contains(t, msgs, messages.ErrorOccurred{Err: domain.ErrSessionEnded})
}

func TestView_SearchRequested(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)

	_, cmd := view.Update(messages.SearchRequested{Query: "from:alice"})

	assert.NotNil(t, cmd)
	assert.Equal(t, "from:alice", view.Query())
	assert.Equal(t, "from:alice", svc.last().query)
}

func TestView_SnapshotUpdated(t *testing.T) {
	svc := &MockSearchService{}
	focuser := &mockFocuser{}
	view := newTestView(svc, focuser)
	submit(t, view, "invoice")
	session := svc.last()

	_, cmd := view.Update(messages.SnapshotUpdated{SessionID: session.ID(), Threads: testThreads()})

	assert.NotNil(t, cmd)
	assert.Len(t, view.Threads(), 2)
	assert.Equal(t, 2, view.statusbar.ResultCount())
	assert.Equal(t, []string{"t1"}, focuser.ids())
}

func TestView_SnapshotUpdated_StaleSessionIgnored(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")

	_, cmd := view.Update(messages.SnapshotUpdated{SessionID: "other", Threads: testThreads()})

	assert.Nil(t, cmd)
	assert.Empty(t, view.Threads())
}

func TestView_SnapshotUpdated_KeepsSelection(t *testing.T) {
	svc := &MockSearchService{}
	focuser := &mockFocuser{}
	view := newTestView(svc, focuser)
	submit(t, view, "invoice")
	id := svc.last().ID()
	view.Update(messages.SnapshotUpdated{SessionID: id, Threads: testThreads()})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	newer := domain.Thread{ID: "t0", AccountID: "work", Subject: "Invoice April",
		LastMessageAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}
	view.Update(messages.SnapshotUpdated{SessionID: id, Threads: append([]domain.Thread{newer}, testThreads()...)})

	require.NotNil(t, view.SelectedThread())
	assert.Equal(t, "t2", view.SelectedThread().ID)
	assert.Equal(t, []string{"t1", "t2"}, focuser.ids())
}

func TestView_Navigation_ReportsFocus(t *testing.T) {
	svc := &MockSearchService{}
	focuser := &mockFocuser{}
	view := newTestView(svc, focuser)
	submit(t, view, "invoice")
	view.Update(messages.SnapshotUpdated{SessionID: svc.last().ID(), Threads: testThreads()})

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})

	assert.Equal(t, 0, view.SelectedIndex())
	assert.Equal(t, []string{"t1", "t2", "t1"}, focuser.ids())
}

func TestView_Navigation_FallsBackToSession(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")
	session := svc.last()
	view.Update(messages.SnapshotUpdated{SessionID: session.ID(), Threads: testThreads()})

	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	session.mu.Lock()
	defer session.mu.Unlock()
	require.Len(t, session.focused, 2)
	assert.Equal(t, "t2", session.focused[1].ID)
}

func TestView_SessionCompleted(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")

	view.Update(messages.SessionCompleted{SessionID: "other"})
	assert.Equal(t, status.StateSearching, view.statusbar.State())

	view.Update(messages.SessionCompleted{SessionID: svc.last().ID()})
	assert.Equal(t, status.StateComplete, view.statusbar.State())
}

func TestView_NewSearch_EndsPreviousSession(t *testing.T) {
	svc := &MockSearchService{}
	focuser := &mockFocuser{}
	view := newTestView(svc, focuser)
	submit(t, view, "invoice")
	first := svc.last()
	view.Update(messages.SnapshotUpdated{SessionID: first.ID(), Threads: testThreads()})
	firstFeed := view.feed

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	require.True(t, view.InputFocused())
	assert.Equal(t, "", view.Query())

	cmd := submit(t, view, "receipt")
	second := svc.last()
	second.emit()
	runCmd(cmd)

	assert.NotSame(t, first, second)
	assert.Equal(t, 1, first.Ends())
	assert.Equal(t, 0, second.Ends())
	assert.Nil(t, firstFeed.wait()())
	assert.Equal(t, []string{"t1", ""}, focuser.ids())

	first.emit(testThreads()...)
	assert.Empty(t, view.Threads())
}

func TestView_EnterInResults_OpensThread(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")
	view.Update(messages.SnapshotUpdated{SessionID: svc.last().ID(), Threads: testThreads()})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	opened, ok := cmd().(messages.ThreadOpened)
	require.True(t, ok)
	assert.Equal(t, "t2", opened.Thread.ID)
}

func TestView_EnterInResults_NoThreads(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_EscInInput_EndsSession(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")
	session := svc.last()
	view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, view.InputFocused())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	runCmd(cmd)

	assert.Equal(t, 1, session.Ends())
	assert.Nil(t, view.Session())
	assert.Equal(t, "Search ended", view.statusbar.Message())
}

func TestView_EscInInput_ReturnsToResults(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "invoice")
	view.Update(messages.SnapshotUpdated{SessionID: svc.last().ID(), Threads: testThreads()})
	view.Close()
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	require.True(t, view.InputFocused())

	view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, view.InputFocused())
}

func TestView_HistoryKeys(t *testing.T) {
	svc := &MockSearchService{}
	view := newTestView(svc, nil)
	submit(t, view, "first")
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	submit(t, view, "second")
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", view.Query())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", view.Query())

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "second", view.Query())
}

func TestView_TypingInInput(t *testing.T) {
	view := newTestView(&MockSearchService{}, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'i'}})

	assert.Equal(t, "hi", view.Query())
}

func TestView_Close(t *testing.T) {
	svc := &MockSearchService{}
	focuser := &mockFocuser{}
	view := newTestView(svc, focuser)
	submit(t, view, "invoice")
	session := svc.last()

	view.Close()
	view.Close()

	assert.Equal(t, 1, session.Ends())
	assert.Nil(t, view.Session())
	assert.Equal(t, []string{""}, focuser.ids())
}

func TestView_ErrorOccurred(t *testing.T) {
	view := newTestView(nil, nil)

	view.Update(messages.ErrorOccurred{Err: errors.New("stream rejected")})

	assert.EqualError(t, view.Err(), "stream rejected")
	assert.Contains(t, view.View(), "stream rejected")

	view.ClearError()
	assert.NoError(t, view.Err())
}

func TestView_View(t *testing.T) {
	view := NewView(nil, nil, nil, nil, nil)
	assert.Equal(t, "Initialising...", view.View())

	view.SetDimensions(100, 30)
	out := view.View()
	assert.Contains(t, out, "threadsearch")
	assert.Contains(t, out, "No results")
}

func TestSnapshotFeed_KeepsLatest(t *testing.T) {
	feed := newSnapshotFeed("s1")

	feed.push([]domain.Thread{{ID: "old"}})
	feed.push([]domain.Thread{{ID: "new"}})

	msg, ok := feed.wait()().(messages.SnapshotUpdated)
	require.True(t, ok)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, []string{"new"}, domain.ThreadIDs(msg.Threads))
}

func TestSnapshotFeed_Close(t *testing.T) {
	feed := newSnapshotFeed("s1")

	feed.close()
	feed.close()
	feed.push([]domain.Thread{{ID: "t1"}})

	assert.Nil(t, feed.wait()())
}
