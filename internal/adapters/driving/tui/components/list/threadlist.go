// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// linesPerThread is the height of one rendered entry.
const linesPerThread = 2

// ThreadList displays live search results in a navigable list.
// The selection follows the selected thread's ID across snapshots, so a
// reordering update does not move the cursor to a different thread.
type ThreadList struct {
	threads  []domain.Thread
	selected int
	styles   *styles.Styles
	width    int
	height   int
	now      func() time.Time
}

// NewThreadList creates a new thread list component.
func NewThreadList(s *styles.Styles) *ThreadList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ThreadList{
		styles: s,
		width:  80,
		height: 10,
		now:    time.Now,
	}
}

// Init initialises the thread list.
func (r *ThreadList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ThreadList) Update(msg tea.Msg) (*ThreadList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		case "home", "g":
			r.selected = 0
		case "end", "G":
			if len(r.threads) > 0 {
				r.selected = len(r.threads) - 1
			}
		}
	}
	return r, nil
}

// View renders the thread list.
func (r *ThreadList) View() string {
	if len(r.threads) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.threads)*linesPerThread+2)
	header := r.styles.Subtitle.Render(fmt.Sprintf("Threads (%d)", len(r.threads)))
	lines = append(lines, header, "")

	start, end := r.visibleRange()
	for i := start; i < end; i++ {
		lines = append(lines, r.renderThread(i, &r.threads[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ThreadList) visibleRange() (int, int) {
	visible := (r.height - 2) / linesPerThread
	if visible < 1 {
		visible = 1
	}
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := start + visible
	if end > len(r.threads) {
		end = len(r.threads)
	}
	return start, end
}

func (r *ThreadList) renderThread(index int, t *domain.Thread) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}
	marker := "  "
	if t.Unread {
		marker = "● "
	}

	subject := t.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	date := formatDate(t.LastMessageAt, r.now())
	account := "[" + t.AccountID + "]"

	// indicator, marker and three separating spaces.
	room := r.width - lipgloss.Width(date) - lipgloss.Width(account) - 7
	if room < 10 {
		room = 10
	}
	subject = ansi.Truncate(subject, room, "…")
	pad := room - lipgloss.Width(subject)
	if pad < 0 {
		pad = 0
	}

	var subjectLine string
	switch {
	case index == r.selected:
		subjectLine = r.styles.Selected.Render(
			indicator + marker + subject + strings.Repeat(" ", pad) + " " + account + "  " + date)
	case t.Unread:
		subjectLine = indicator + marker + r.styles.Unread.Render(subject) + strings.Repeat(" ", pad) +
			" " + r.styles.Account.Render(account) + "  " + r.styles.Muted.Render(date)
	default:
		subjectLine = indicator + marker + r.styles.Normal.Render(subject) + strings.Repeat(" ", pad) +
			" " + r.styles.Account.Render(account) + "  " + r.styles.Muted.Render(date)
	}

	preview := t.Snippet
	if preview == "" && len(t.Participants) > 0 {
		preview = strings.Join(t.Participants, ", ")
	}
	maxPreview := r.width - 6
	if maxPreview < 20 {
		maxPreview = 20
	}
	preview = ansi.Truncate(strings.Join(strings.Fields(preview), " "), maxPreview, "…")

	return subjectLine + "\n" + r.styles.Muted.Render("    "+preview)
}

// formatDate renders t relative to now: a clock time for today, month and
// day within the year, and a full date otherwise.
func formatDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 2")
	default:
		return t.Format("2006-01-02")
	}
}

// SetThreads replaces the list contents, keeping the selection on the same
// thread when it is still present and clamping it otherwise.
func (r *ThreadList) SetThreads(threads []domain.Thread) {
	var selectedID string
	if t := r.SelectedThread(); t != nil {
		selectedID = t.ID
	}

	r.threads = threads
	if selectedID != "" {
		for i := range threads {
			if threads[i].ID == selectedID {
				r.selected = i
				return
			}
		}
	}
	if r.selected >= len(threads) {
		r.selected = len(threads) - 1
	}
	if r.selected < 0 {
		r.selected = 0
	}
}

// Threads returns the current threads.
func (r *ThreadList) Threads() []domain.Thread {
	return r.threads
}

// Selected returns the index of the selected thread.
func (r *ThreadList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ThreadList) SetSelected(index int) {
	if index >= 0 && index < len(r.threads) {
		r.selected = index
	}
}

// SelectedThread returns the currently selected thread, or nil if none.
func (r *ThreadList) SelectedThread() *domain.Thread {
	if len(r.threads) == 0 || r.selected < 0 || r.selected >= len(r.threads) {
		return nil
	}
	return &r.threads[r.selected]
}

// MoveUp moves selection up.
func (r *ThreadList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ThreadList) MoveDown() {
	if r.selected < len(r.threads)-1 {
		r.selected++
	}
}

// SetDimensions sets the list dimensions.
func (r *ThreadList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of threads.
func (r *ThreadList) Count() int {
	return len(r.threads)
}

// IsEmpty returns true if there are no threads.
func (r *ThreadList) IsEmpty() bool {
	return len(r.threads) == 0
}
