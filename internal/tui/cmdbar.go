package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// executeCommand runs a command typed into the input bar. The leading slash
// is optional.
func (a *App) executeCommand(input string) tea.Cmd {
	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "quit", "exit":
		return tea.Quit
	case "tasks", "workers", "totals", "audit":
		a.mode = parts[0]
		return a.refresh()
	case "refresh":
		return a.refresh()
	}

	client := a.client
	return func() tea.Msg {
		switch parts[0] {
		case "pause":
			if err := client.Pause(); err != nil {
				return commandResultMsg{fmt.Sprintf("Error: %v", err)}
			}
			return commandResultMsg{"Workflow paused"}
		case "resume":
			if err := client.Resume(); err != nil {
				return commandResultMsg{fmt.Sprintf("Error: %v", err)}
			}
			return commandResultMsg{"Workflow resumed"}
		default:
			return commandResultMsg{fmt.Sprintf("Unknown command: %s", parts[0])}
		}
	}
}
