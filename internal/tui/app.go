// Package tui provides the interactive dashboard for a running fabrik daemon.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// RefreshInterval is how often the dashboard polls the daemon.
const RefreshInterval = 500 * time.Millisecond

var modes = []string{"tasks", "workers", "totals", "audit"}

type keyMap struct {
	Pause   key.Binding
	Refresh key.Binding
	Next    key.Binding
	Command key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Refresh, k.Next, k.Command, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Command: key.NewBinding(key.WithKeys("/", ":"), key.WithHelp("/", "command")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// App is the main TUI application model.
type App struct {
	client       *Client
	snapshot     *engine.Snapshot
	totals       *TotalsView
	audit        []models.PDREntry
	input        textinput.Model
	bar          progress.Model
	help         help.Model
	suggestions  *Suggestions
	width        int
	height       int
	mode         string
	message      string
	daemonOnline bool
	driver       string
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	ti := textinput.New()
	ti.Placeholder = "pause | resume | workers | totals | audit"
	ti.CharLimit = 64
	ti.Width = 60

	return &App{
		client:      NewClient(apiAddr),
		input:       ti,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		help:        help.New(),
		suggestions: NewSuggestions(),
		mode:        "tasks",
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refresh(), a.tickCmd())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.input.Focused() {
			return a.updateInput(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Pause):
			if a.driver == "paused" {
				return a, a.executeCommand("resume")
			}
			return a, a.executeCommand("pause")
		case key.Matches(msg, keys.Refresh):
			return a, a.refresh()
		case key.Matches(msg, keys.Next):
			a.mode = nextMode(a.mode)
			return a, a.refresh()
		case key.Matches(msg, keys.Command):
			a.message = ""
			a.input.SetValue("/")
			a.input.CursorEnd()
			a.suggestions.Update(a.input.Value())
			return a, a.input.Focus()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6
		a.bar.Width = max(msg.Width/3, 10)
		a.help.Width = msg.Width

	case statusLoadedMsg:
		snap := msg.snapshot
		a.snapshot = &snap

	case totalsLoadedMsg:
		a.totals = msg.totals

	case auditLoadedMsg:
		a.audit = msg.entries

	case daemonStatusMsg:
		a.daemonOnline = msg.online
		a.driver = msg.driver

	case tickMsg:
		return a, tea.Batch(a.refresh(), a.tickCmd())

	case commandResultMsg:
		a.message = msg.message
		return a, a.refresh()

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	return a, nil
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.input.Blur()
		a.input.SetValue("")
		a.suggestions.Update("")
		return a, nil
	case "up":
		a.suggestions.Prev()
		return a, nil
	case "down":
		a.suggestions.Next()
		return a, nil
	case "tab":
		if selected := a.suggestions.Selected(); selected != nil {
			a.input.SetValue("/" + selected.Text)
			a.input.CursorEnd()
		}
		return a, nil
	case "enter":
		value := strings.TrimSpace(a.input.Value())
		if selected := a.suggestions.Selected(); selected != nil {
			value = selected.Text
		}
		a.input.Blur()
		a.input.SetValue("")
		a.suggestions.Update("")
		return a, a.executeCommand(value)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.suggestions.Update(a.input.Value())
	return a, cmd
}

func nextMode(mode string) string {
	for i, m := range modes {
		if m == mode {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemon := onlineStyle.Render("● DAEMON " + a.driver)
	if !a.daemonOnline {
		daemon = offlineStyle.Render("○ DAEMON offline")
	}

	header := titleStyle.Render("fabrik")
	if a.snapshot != nil {
		header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("(workflow) %s", a.snapshot.Plan))
		header += "  " + lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf("tick %d", a.snapshot.Tick))
	}
	header += "  " + daemon

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 20)) + "\n")

	contentHeight := a.height - 8
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.mode {
	case "tasks":
		b.WriteString(renderTasks(a.snapshot, a.bar, contentHeight))
		if a.snapshot != nil && a.snapshot.LastArchived != nil {
			last := a.snapshot.LastArchived
			b.WriteString("\n" + lipgloss.NewStyle().Foreground(successColor).Render(
				fmt.Sprintf("!! %s #%d finished at tick %d  cost %.2f  profit %.2f",
					last.Name, last.Serial, last.Tick, last.Cost, last.Profit)) + "\n")
		}
	case "workers":
		b.WriteString(renderWorkers(a.snapshot, a.bar))
	case "totals":
		b.WriteString(renderTotals(a.totals))
	case "audit":
		b.WriteString(renderAudit(a.audit, contentHeight))
	}

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	}
	b.WriteString("\n")

	if a.input.Focused() {
		b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n")
		if a.suggestions.IsVisible() {
			b.WriteString(a.suggestions.Render(a.width) + "\n")
		}
	}

	status := fmt.Sprintf(" View: %s | %s", strings.ToUpper(a.mode), a.help.View(keys))
	b.WriteString(statusBarStyle.Width(max(a.width, 20)).Render(status))

	return b.String()
}

// refresh fetches everything the current view needs.
func (a *App) refresh() tea.Cmd {
	cmds := []tea.Cmd{a.fetchStatus(), a.checkDaemon()}
	switch a.mode {
	case "totals":
		cmds = append(cmds, a.fetchTotals())
	case "audit":
		cmds = append(cmds, a.fetchAudit())
	}
	return tea.Batch(cmds...)
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.client.Status()
		if err != nil {
			return errMsg{err}
		}
		return statusLoadedMsg{snapshot: *snap}
	}
}

func (a *App) fetchTotals() tea.Cmd {
	return func() tea.Msg {
		totals, err := a.client.Totals()
		if err != nil {
			return errMsg{err}
		}
		return totalsLoadedMsg{totals: totals}
	}
}

func (a *App) fetchAudit() tea.Cmd {
	return func() tea.Msg {
		entries, err := a.client.Audit(50)
		if err != nil {
			return errMsg{err}
		}
		return auditLoadedMsg{entries: entries}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		health, err := a.client.Health()
		if err != nil {
			return daemonStatusMsg{online: false}
		}
		return daemonStatusMsg{online: true, driver: health.Driver}
	}
}
