// Package search provides the live search view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// Focuser receives the thread selected in the result list.
type Focuser interface {
	Focus(kind domain.FocusKind, item *domain.Thread)
}

// View is the search input with a result list that updates while the
// session streams.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ThreadList
	statusbar *status.Bar

	searchService   driving.SearchService
	settingsService driving.SettingsService
	focuser         Focuser
	accounts        []string
	ctx             context.Context

	session     driving.SearchSession
	feed        *snapshotFeed
	unsubscribe func()
	focusedID   string

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a query, false = browsing results
}

// NewView creates a new search view. settingsService and focuser are
// optional; without a focuser the selection is reported to the session.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
	settingsService driving.SettingsService,
	focuser Focuser,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:          s,
		keymap:          km,
		input:           input.NewSearchInput(s),
		list:            list.NewThreadList(s),
		statusbar:       status.NewBar(s, km),
		searchService:   searchService,
		settingsService: settingsService,
		focuser:         focuser,
		ctx:             context.Background(),
		width:           80,
		height:          24,
		focusInput:      true,
	}
}

// WithContext sets the context sessions are started with.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetAccounts overrides the accounts searched. Nil falls back to settings.
func (v *View) SetAccounts(accounts []string) {
	v.accounts = accounts
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchRequested:
		v.input.SetValue(msg.Query)
		return v, v.submit(msg.Query)

	case messages.SessionStarted:
		if v.isActive(msg.SessionID) {
			logger.Debug("TUI session %s started for %v", msg.SessionID, msg.Accounts)
		}
		return v, nil

	case messages.SnapshotUpdated:
		if !v.isActive(msg.SessionID) {
			return v, nil
		}
		v.list.SetThreads(msg.Threads)
		v.statusbar.SetResultCount(len(msg.Threads))
		v.syncFocus()
		return v, v.feed.wait()

	case messages.SessionCompleted:
		if v.isActive(msg.SessionID) {
			v.statusbar.SetState(status.StateComplete)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.statusbar, cmd = v.statusbar.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		return v.handleInputKey(msg)
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Open):
		if t := v.list.SelectedThread(); t != nil {
			thread := *t
			return v, func() tea.Msg { return messages.ThreadOpened{Thread: thread} }
		}
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.NewSearch), keymap.Matches(msg.String(), v.keymap.Back):
		v.focusInput = true
		v.statusbar.SetBrowsing(false)
		v.input.Reset()
		return v, v.input.Focus()
	}

	v.list, _ = v.list.Update(msg)
	v.syncFocus()
	return v, nil
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter:
		return v, v.submit(v.input.Value())

	case msg.Type == tea.KeyEsc:
		if v.session != nil {
			cmd := v.endSession()
			v.statusbar.Clear()
			v.statusbar.SetMessage("Search ended")
			return v, cmd
		}
		if !v.list.IsEmpty() {
			v.focusInput = false
			v.statusbar.SetBrowsing(true)
			v.input.Blur()
		}
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.HistoryPrev):
		v.input.Prev()
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.HistoryNext):
		v.input.Next()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit ends any running session and starts a new one for query.
func (v *View) submit(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	v.input.Remember(query)

	endCmd := v.endSession()

	if v.searchService == nil {
		v.setError(ErrNoSearchService)
		return endCmd
	}
	accounts, err := v.resolveAccounts()
	if err != nil {
		v.setError(err)
		return endCmd
	}

	session, err := v.searchService.NewSession(query, accounts)
	if err != nil {
		v.setError(err)
		return endCmd
	}

	feed := newSnapshotFeed(session.ID())
	v.session = session
	v.feed = feed
	v.unsubscribe = session.Subscribe(feed.push)
	v.err = nil
	v.list.SetThreads(nil)
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetBrowsing(true)
	tick := v.statusbar.StartSearch(len(accounts))

	ctx := v.ctx
	start := func() tea.Msg {
		if err := session.Start(ctx); err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.SessionStarted{
			SessionID: session.ID(),
			Query:     session.Query(),
			Accounts:  session.Accounts(),
		}
	}

	return tea.Batch(endCmd, start, tick, feed.wait(), feed.completion(session))
}

func (v *View) resolveAccounts() ([]string, error) {
	if len(v.accounts) > 0 {
		return v.accounts, nil
	}
	if v.settingsService != nil {
		settings, err := v.settingsService.Get()
		if err != nil {
			return nil, err
		}
		if len(settings.Accounts) > 0 {
			return settings.Accounts, nil
		}
	}
	return nil, ErrNoAccounts
}

// endSession detaches from the active session and returns a command that
// ends it off the UI goroutine, since End waits for a Start in progress.
func (v *View) endSession() tea.Cmd {
	session := v.session
	if session == nil {
		return nil
	}
	v.feed.close()
	v.unsubscribe()
	v.session = nil
	v.feed = nil
	v.unsubscribe = nil
	v.reportFocus(nil)
	v.focusedID = ""

	return func() tea.Msg {
		session.End()
		return nil
	}
}

// Close ends the active session synchronously.
func (v *View) Close() {
	if cmd := v.endSession(); cmd != nil {
		cmd()
	}
}

func (v *View) isActive(sessionID string) bool {
	return v.session != nil && v.session.ID() == sessionID
}

// syncFocus reports the selected thread when it differs from the last one
// reported.
func (v *View) syncFocus() {
	selected := v.list.SelectedThread()
	id := ""
	if selected != nil {
		id = selected.ID
	}
	if id == v.focusedID {
		return
	}
	v.focusedID = id
	if selected == nil {
		v.reportFocus(nil)
		return
	}
	t := *selected
	v.reportFocus(&t)
}

func (v *View) reportFocus(item *domain.Thread) {
	if v.focuser != nil {
		v.focuser.Focus(domain.FocusThread, item)
		return
	}
	if v.session != nil {
		v.session.OnFocusChanged(item)
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("threadsearch"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // header, input, status
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current input text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Threads returns the threads currently shown.
func (v *View) Threads() []domain.Thread {
	return v.list.Threads()
}

// SelectedIndex returns the index of the selected thread.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedThread returns the currently selected thread.
func (v *View) SelectedThread() *domain.Thread {
	return v.list.SelectedThread()
}

// Session returns the active session, if any.
func (v *View) Session() driving.SearchSession {
	return v.session
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// ClearError clears the current error.
func (v *View) ClearError() {
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
