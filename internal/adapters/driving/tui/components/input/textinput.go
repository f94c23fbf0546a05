// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/styles"
)

// maxHistory bounds the number of remembered queries.
const maxHistory = 50

// SearchInput wraps a bubbles textinput and remembers submitted queries.
type SearchInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int

	// history holds submitted queries, oldest first. cursor == len(history)
	// means the user is editing a fresh query held in draft.
	history []string
	cursor  int
	draft   string
}

// NewSearchInput creates a new search input component.
func NewSearchInput(s *styles.Styles) *SearchInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "from:alice subject:invoice -draft ..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &SearchInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the search input.
func (s *SearchInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.textinput, cmd = s.textinput.Update(msg)
	return s, cmd
}

// View renders the search input.
func (s *SearchInput) View() string {
	label := s.styles.Title.Render("Search: ")
	input := s.styles.InputField.Render(s.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, input)
}

// Value returns the current input value.
func (s *SearchInput) Value() string {
	return s.textinput.Value()
}

// SetValue sets the input value.
func (s *SearchInput) SetValue(value string) {
	s.textinput.SetValue(value)
	s.textinput.CursorEnd()
}

// Focus sets focus on the input.
func (s *SearchInput) Focus() tea.Cmd {
	return s.textinput.Focus()
}

// Blur removes focus from the input.
func (s *SearchInput) Blur() {
	s.textinput.Blur()
}

// Focused returns whether the input is focused.
func (s *SearchInput) Focused() bool {
	return s.textinput.Focused()
}

// SetWidth sets the width of the input.
func (s *SearchInput) SetWidth(width int) {
	s.width = width
	// Account for label and padding
	inputWidth := width - 10
	if inputWidth < 20 {
		inputWidth = 20
	}
	s.textinput.Width = inputWidth
}

// Width returns the current width.
func (s *SearchInput) Width() int {
	return s.width
}

// Reset clears the input and leaves history browsing.
func (s *SearchInput) Reset() {
	s.textinput.Reset()
	s.cursor = len(s.history)
	s.draft = ""
}

// Remember appends query to the history. Blank queries and immediate
// repeats are not recorded.
func (s *SearchInput) Remember(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.cursor = len(s.history)
		return
	}
	if n := len(s.history); n == 0 || s.history[n-1] != query {
		s.history = append(s.history, query)
		if len(s.history) > maxHistory {
			s.history = s.history[len(s.history)-maxHistory:]
		}
	}
	s.cursor = len(s.history)
	s.draft = ""
}

// History returns the remembered queries, oldest first.
func (s *SearchInput) History() []string {
	return append([]string(nil), s.history...)
}

// Prev replaces the value with the previous remembered query.
// It reports false when there is nothing older.
func (s *SearchInput) Prev() bool {
	if s.cursor == 0 {
		return false
	}
	if s.cursor == len(s.history) {
		s.draft = s.textinput.Value()
	}
	s.cursor--
	s.SetValue(s.history[s.cursor])
	return true
}

// Next moves towards newer queries, ending on the draft being typed
// before history browsing began.
func (s *SearchInput) Next() bool {
	if s.cursor >= len(s.history) {
		return false
	}
	s.cursor++
	if s.cursor == len(s.history) {
		s.SetValue(s.draft)
		return true
	}
	s.SetValue(s.history[s.cursor])
	return true
}
