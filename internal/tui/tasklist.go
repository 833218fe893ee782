package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/fabrik/internal/engine"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusWaiting  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusReady    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusComplete = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
)

func taskStatus(t engine.TaskSnapshot) string {
	switch {
	case t.Complete:
		return "complete"
	case t.Eligible:
		return "ready"
	default:
		return "waiting"
	}
}

func formatStatus(status string) string {
	switch status {
	case "complete":
		return statusComplete.Render("● complete")
	case "ready":
		return statusReady.Render("● ready")
	case "waiting":
		return statusWaiting.Render("● waiting")
	default:
		return status
	}
}

// renderTasks draws the active product with one bar per task.
func renderTasks(snap *engine.Snapshot, bar progress.Model, height int) string {
	if snap == nil {
		return "\n  Waiting for the daemon...\n"
	}

	var b strings.Builder
	p := snap.Product
	b.WriteString(listTitleStyle.Render(fmt.Sprintf("(product) %s #%d", p.Name, p.Serial)))
	b.WriteString(fmt.Sprintf("  cost %.2f  profit %.2f\n", p.Cost, p.Profit))
	b.WriteString(bar.ViewAs(p.Completion) + "\n\n")

	if len(p.Tasks) == 0 {
		b.WriteString("  This product has no tasks.\n")
		return b.String()
	}

	nameWidth := 0
	for _, t := range p.Tasks {
		nameWidth = max(nameWidth, len(t.Name))
	}

	lines := 0
	for _, t := range p.Tasks {
		if lines >= height-4 {
			b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render("  ...") + "\n")
			break
		}
		line := fmt.Sprintf("  %-*s  %s  %s", nameWidth, t.Name, bar.ViewAs(t.Completion), formatStatus(taskStatus(t)))
		if len(t.DependsOn) > 0 && !t.Complete {
			line += lipgloss.NewStyle().Foreground(mutedColor).Render("  after " + strings.Join(t.DependsOn, ", "))
		}
		b.WriteString(line + "\n")
		lines++
	}
	return b.String()
}
