package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	matchLineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("228")). // yellow
			Foreground(lipgloss.Color("0"))    // black

	currentLineStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("196")). // red
				Foreground(lipgloss.Color("15"))   // white

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2)
)

// reportViewer pages through a rendered report. Search works on whole lines
// so that a hit on a record highlights the full table row.
type reportViewer struct {
	viewport viewport.Model
	lines    []string
	plain    []string
	status   string
	ready    bool

	searching bool
	input     textinput.Model
	matches   []int
	current   int
}

func newReportViewer(content, status string) *reportViewer {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	lines := strings.Split(content, "\n")
	plain := make([]string, len(lines))
	for i, l := range lines {
		plain[i] = ansi.Strip(l)
	}
	return &reportViewer{lines: lines, plain: plain, status: status, input: ti}
}

func (m *reportViewer) Init() tea.Cmd {
	return nil
}

func (m *reportViewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.clearSearch()
		case "/":
			m.searching = true
			m.input.Focus()
			return m, textinput.Blink
		case "n":
			m.jump(1)
		case "N":
			m.jump(-1)
		case "g", "home":
			m.viewport.GotoTop()
		case "G", "end":
			m.viewport.GotoBottom()
		}

	case tea.WindowSizeMsg:
		// status and help lines sit under the viewport
		height := max(msg.Height-3, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.render())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *reportViewer) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Reset()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search(m.input.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *reportViewer) View() string {
	if !m.ready {
		return "\nInitializing..."
	}
	help := "↑/k ↓/j scroll • g/G top/bottom • / search • q quit"
	if len(m.matches) > 0 {
		help = fmt.Sprintf("match %d/%d • n next • N previous • esc clear • q quit", m.current+1, len(m.matches))
	}
	bottom := helpStyle.Render(help)
	if m.searching {
		bottom = m.input.View()
	}
	return m.viewport.View() + "\n" + m.status + "\n" + bottom
}

// search records every line containing query, case-insensitive unless query has capitals
func (m *reportViewer) search(query string) {
	m.matches, m.current = nil, 0
	if query == "" {
		m.viewport.SetContent(m.render())
		return
	}
	caseSensitive := strings.ToLower(query) != query
	for i, line := range m.plain {
		if !caseSensitive {
			line = strings.ToLower(line)
		}
		if strings.Contains(line, query) {
			m.matches = append(m.matches, i)
		}
	}
	// start from the first match at or below the top of the view
	for i, line := range m.matches {
		if line >= m.viewport.YOffset {
			m.current = i
			break
		}
	}
	m.show()
}

// jump moves the current match by delta, wrapping around
func (m *reportViewer) jump(delta int) {
	if len(m.matches) == 0 {
		return
	}
	m.current = (m.current + delta + len(m.matches)) % len(m.matches)
	m.show()
}

func (m *reportViewer) clearSearch() {
	m.matches, m.current = nil, 0
	m.input.Reset()
	m.viewport.SetContent(m.render())
}

func (m *reportViewer) show() {
	m.viewport.SetContent(m.render())
	if len(m.matches) == 0 {
		return
	}
	line := m.matches[m.current]
	if line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(max(line-m.viewport.Height/2, 0))
	}
}

func (m *reportViewer) render() string {
	if len(m.matches) == 0 {
		return strings.Join(m.lines, "\n")
	}
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	for i, line := range m.matches {
		style := matchLineStyle
		if i == m.current {
			style = currentLineStyle
		}
		out[line] = style.Render(m.plain[line])
	}
	return strings.Join(out, "\n")
}

// RunPager shows content full screen with status under it until the user quits
func RunPager(content, status string) error {
	p := tea.NewProgram(
		newReportViewer(content, status),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
