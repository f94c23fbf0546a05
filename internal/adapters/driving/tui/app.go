package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/views/thread"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	searchView *search.View
	threadView *thread.View

	// currentView tracks which view is active; previousView is restored
	// when the help view closes.
	currentView  messages.ViewType
	previousView messages.ViewType

	// initialQuery is submitted on start when set.
	initialQuery string

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	h := help.New()
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Normal
	h.Styles.FullSeparator = s.Muted

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		help:        h,
		searchView:  search.NewView(s, km, ports.Search, ports.Settings, ports.Focus),
		threadView:  thread.NewView(s, ports.Threads),
		currentView: messages.ViewSearch,
	}, nil
}

// WithContext sets the context sessions and cache reads run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.threadView.WithContext(ctx)
	return a
}

// WithAccounts restricts searches to accounts instead of the configured
// defaults.
func (a *App) WithAccounts(accounts []string) *App {
	a.searchView.SetAccounts(accounts)
	return a
}

// WithQuery submits query as soon as the program starts.
func (a *App) WithQuery(query string) *App {
	a.initialQuery = query
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.SetWindowTitle("threadsearch"),
		a.searchView.Init(),
	}
	if a.initialQuery != "" {
		query := a.initialQuery
		cmds = append(cmds, func() tea.Msg { return messages.SearchRequested{Query: query} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.ThreadOpened:
		a.currentView = messages.ViewThread
		return a, a.threadView.SetThread(msg.Thread)

	case messages.ThreadLoaded:
		a.threadView, cmd = a.threadView.Update(msg)
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.Quit:
		a.Close()
		return a, tea.Quit
	}

	// Session traffic keeps flowing to the search view whichever view is
	// shown, otherwise the snapshot feed would stall.
	a.searchView, cmd = a.searchView.Update(msg)
	return a, cmd
}

func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg.String() == "ctrl+c" {
		a.Close()
		return a, tea.Quit
	}

	typing := a.currentView == messages.ViewSearch && a.searchView.InputFocused()
	if !typing {
		switch {
		case keymap.Matches(msg.String(), a.keymap.Quit):
			a.Close()
			return a, tea.Quit
		case keymap.Matches(msg.String(), a.keymap.Help):
			if a.currentView == messages.ViewHelp {
				a.currentView = a.previousView
			} else {
				a.previousView = a.currentView
				a.currentView = messages.ViewHelp
			}
			return a, nil
		}
	}

	switch a.currentView {
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewThread:
		a.threadView, cmd = a.threadView.Update(msg)
	case messages.ViewHelp:
		if msg.Type == tea.KeyEsc {
			a.currentView = a.previousView
		}
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewThread:
		return a.threadView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.searchView.View()
	}
}

func (a *App) viewHelp() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("Help"),
		"",
		a.help.FullHelpView(a.keymap.FullHelp()),
		"",
		a.styles.Muted.Render("Query syntax: words, \"phrases\", -excluded, from:, to:, subject:, account:, is:unread"),
		"",
		a.styles.Help.Render("[esc] back"),
	)
}

// Run starts the TUI application and ends any running session on exit.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Close ends the active search session.
func (a *App) Close() {
	a.searchView.Close()
}

// Query returns the current query text.
func (a *App) Query() string {
	return a.searchView.Query()
}

// Threads returns the threads currently listed.
func (a *App) Threads() []domain.Thread {
	return a.searchView.Threads()
}

// SelectedIndex returns the currently selected thread index.
func (a *App) SelectedIndex() int {
	return a.searchView.SelectedIndex()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error shown by the search view.
func (a *App) Err() error {
	return a.searchView.Err()
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.help.Width = width
	a.searchView.SetDimensions(width, height)
	a.threadView.SetDimensions(width, height)
}
