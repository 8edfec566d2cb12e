package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/clearview/internal/history"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/render"
)

// verdictFilters are cycled with tab
var verdictFilters = []string{history.FilterAll, "true", "false"}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeTab     = lipgloss.NewStyle().Bold(true).Underline(true)
)

type browser struct {
	entries  []model.HistoryEntry
	visible  []model.HistoryEntry
	search   textinput.Model
	filter   int
	cursor   int
	selected *model.HistoryEntry
	width    int
	height   int
}

func newBrowser(entries []model.HistoryEntry) browser {
	ti := textinput.New()
	ti.Placeholder = "Search claims"
	ti.Prompt = "/ "
	ti.Focus()

	b := browser{entries: entries, search: ti}
	b.refilter()
	return b
}

func (b browser) Init() tea.Cmd {
	return textinput.Blink
}

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return b, tea.Quit
		case tea.KeyTab:
			b.filter = (b.filter + 1) % len(verdictFilters)
			b.refilter()
			return b, nil
		case tea.KeyShiftTab:
			b.filter = (b.filter + len(verdictFilters) - 1) % len(verdictFilters)
			b.refilter()
			return b, nil
		case tea.KeyUp:
			if b.cursor > 0 {
				b.cursor--
			}
			return b, nil
		case tea.KeyDown:
			if b.cursor < len(b.visible)-1 {
				b.cursor++
			}
			return b, nil
		case tea.KeyEnter:
			if b.cursor < len(b.visible) {
				e := b.visible[b.cursor]
				b.selected = &e
				return b, tea.Quit
			}
			return b, nil
		}
	}

	var cmd tea.Cmd
	before := b.search.Value()
	b.search, cmd = b.search.Update(msg)
	if b.search.Value() != before {
		b.refilter()
	}
	return b, cmd
}

func (b *browser) refilter() {
	b.visible = history.Filter(b.entries, b.search.Value(), verdictFilters[b.filter])
	if b.cursor >= len(b.visible) {
		b.cursor = max(len(b.visible)-1, 0)
	}
}

func (b browser) View() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render(fmt.Sprintf(" Fact-check history (%d) ", len(b.entries))))
	s.WriteString("\n\n")
	s.WriteString(b.search.View())
	s.WriteString("\n")

	tabs := make([]string, len(verdictFilters))
	for i, f := range verdictFilters {
		if i == b.filter {
			tabs[i] = activeTab.Render(f)
		} else {
			tabs[i] = mutedStyle.Render(f)
		}
	}
	s.WriteString("Verdict: " + strings.Join(tabs, "  ") + "\n\n")

	if len(b.visible) == 0 {
		s.WriteString(mutedStyle.Render("No matching fact-checks."))
		s.WriteString("\n")
	}

	start, end := b.window()
	for i := start; i < end; i++ {
		e := b.visible[i]
		line := fmt.Sprintf("%s  %-15s %4s  %s",
			e.CreatedAt.Local().Format("01-02 15:04"),
			e.Verdict.Label(),
			render.Percent(e.Confidence),
			render.Truncate(e.Claim, b.claimWidth()))
		if i == b.cursor {
			s.WriteString(selectedStyle.Render("> " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
	}

	if b.cursor < len(b.visible) {
		if r := strings.TrimSpace(b.visible[b.cursor].Reasoning); r != "" {
			s.WriteString("\n")
			s.WriteString(mutedStyle.Render(render.Truncate(r, b.claimWidth()*2)))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(mutedStyle.Render("type to search • tab: verdict • ↑/↓: navigate • enter: open • esc: quit"))
	return s.String()
}

// window returns the visible slice of rows around the cursor
func (b browser) window() (int, int) {
	rows := len(b.visible)
	limit := rows
	if b.height > 0 {
		limit = max(b.height-10, 3)
	}
	if rows <= limit {
		return 0, rows
	}
	start := min(max(b.cursor-limit/2, 0), rows-limit)
	return start, start + limit
}

func (b browser) claimWidth() int {
	if b.width <= 0 {
		return 60
	}
	return max(b.width-32, 20)
}

// Browse runs the interactive history browser and returns the chosen entry,
// or nil when the user quits without choosing.
func Browse(entries []model.HistoryEntry) (*model.HistoryEntry, error) {
	p := tea.NewProgram(newBrowser(entries), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(browser).selected, nil
}
