// Package thread provides the thread details view for the TUI.
package thread

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// View shows one thread. When a thread service is available the thread is
// re-read from the local cache so the view reflects the latest stored copy.
type View struct {
	styles  *styles.Styles
	threads driving.ThreadService
	ctx     context.Context

	thread       *domain.Thread
	scrollOffset int
	width        int
	height       int
	err          error
}

// NewView creates a new thread view. threads may be nil.
func NewView(s *styles.Styles, threads driving.ThreadService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		threads: threads,
		ctx:     context.Background(),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context used for cache reads.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetThread shows t and returns a command that refreshes it from the cache.
func (v *View) SetThread(t domain.Thread) tea.Cmd {
	v.thread = &t
	v.scrollOffset = 0
	v.err = nil

	if v.threads == nil {
		return nil
	}
	ctx, threads, id := v.ctx, v.threads, t.ID
	return func() tea.Msg {
		fresh, err := threads.Get(ctx, id)
		return messages.ThreadLoaded{Thread: fresh, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the thread view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.ThreadLoaded:
		switch {
		case errors.Is(msg.Err, domain.ErrNotFound):
			// Remote-only rows are shown as received.
		case msg.Err != nil:
			v.err = msg.Err
		case msg.Thread != nil && v.thread != nil && msg.Thread.ID == v.thread.ID:
			v.thread = msg.Thread
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.scrollOffset > 0 {
				v.scrollOffset--
			}
		case "down", "j":
			if v.scrollOffset < v.maxScrollOffset() {
				v.scrollOffset++
			}
		case "esc":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewSearch}
			}
		}
	}
	return v, nil
}

func (v *View) visibleLines() int {
	available := v.height - 6
	if available < 1 {
		available = 1
	}
	return available
}

func (v *View) maxScrollOffset() int {
	offset := len(v.buildContent()) - v.visibleLines()
	if offset < 0 {
		return 0
	}
	return offset
}

func (v *View) buildContent() []string {
	if v.thread == nil {
		return nil
	}
	t := v.thread

	lines := []string{
		formatField("Subject", t.Subject),
		formatField("Account", t.AccountID),
		formatField("ID", t.ID),
	}
	if !t.LastMessageAt.IsZero() {
		lines = append(lines, formatField("Last", t.LastMessageAt.Local().Format("2006-01-02 15:04")))
	}
	if t.Unread {
		lines = append(lines, formatField("Status", "unread"))
	}

	if len(t.Participants) > 0 {
		lines = append(lines, "", "Participants:")
		for _, p := range t.Participants {
			lines = append(lines, "  "+p)
		}
	}

	if t.Snippet != "" {
		lines = append(lines, "", "Snippet:")
		wrapped := lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(t.Snippet)
		for _, l := range strings.Split(wrapped, "\n") {
			lines = append(lines, "  "+strings.TrimRight(l, " "))
		}
	}
	return lines
}

func formatField(label, value string) string {
	return fmt.Sprintf("%-10s %s", label+":", value)
}

// View renders the thread view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Thread"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	if v.thread == nil {
		b.WriteString(v.styles.Muted.Render("No thread selected"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	lines := v.buildContent()
	visible := v.visibleLines()
	for i := v.scrollOffset; i < len(lines) && i < v.scrollOffset+visible; i++ {
		line := lines[i]
		switch {
		case strings.HasSuffix(line, ":") && !strings.HasPrefix(line, " "):
			b.WriteString(v.styles.Subtitle.Render(line))
		case strings.HasPrefix(line, "  "):
			b.WriteString(v.styles.Normal.Render(line))
		case strings.Contains(line, ":"):
			parts := strings.SplitN(line, ":", 2)
			b.WriteString(v.styles.Subtitle.Render(parts[0] + ":"))
			b.WriteString(v.styles.Normal.Render(parts[1]))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1, min(v.scrollOffset+visible, len(lines)), len(lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] scroll  [esc] back to results")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Thread returns the thread being shown.
func (v *View) Thread() *domain.Thread {
	return v.thread
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
