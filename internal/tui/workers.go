package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
)

var workerStateStyles = map[engine.WorkerState]lipgloss.Style{
	engine.WorkerWorking:   lipgloss.NewStyle().Foreground(successColor).Bold(true),
	engine.WorkerBlocked:   lipgloss.NewStyle().Foreground(warningColor),
	engine.WorkerResting:   lipgloss.NewStyle().Foreground(cyanColor),
	engine.WorkerExhausted: lipgloss.NewStyle().Foreground(errorColor).Bold(true),
	engine.WorkerIdle:      lipgloss.NewStyle().Foreground(mutedColor),
}

func formatWorkerState(state engine.WorkerState) string {
	if st, ok := workerStateStyles[state]; ok {
		return st.Render(string(state))
	}
	return string(state)
}

// renderWorkers draws one panel per worker with its energy bar and queue.
func renderWorkers(snap *engine.Snapshot, bar progress.Model) string {
	if snap == nil || len(snap.Workers) == 0 {
		return "\n  No workers.\n"
	}

	labelStyle := lipgloss.NewStyle().Foreground(mutedColor)
	var panels []string
	for _, w := range snap.Workers {
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Render("(employee) " + w.Name))
		b.WriteString("  " + formatWorkerState(w.State) + "\n")
		b.WriteString(labelStyle.Render("Energy     ") + bar.ViewAs(w.Energy) + "\n")
		b.WriteString(labelStyle.Render("Efficiency ") + fmt.Sprintf("%.2f", w.Efficiency))
		b.WriteString(labelStyle.Render("  Wage ") + fmt.Sprintf("%.2f", w.Wage))
		b.WriteString(labelStyle.Render("  Worked ") + fmt.Sprintf("%d ticks", w.WorkedTicks) + "\n")
		if w.RestTimer >= 0 {
			b.WriteString(labelStyle.Render("Resting    ") + fmt.Sprintf("%d ticks left", w.RestTimer) + "\n")
		}
		if w.CurrentTask != "" {
			b.WriteString(labelStyle.Render("Current    ") + w.CurrentTask + "\n")
		}
		queue := "(empty)"
		if len(w.Queue) > 0 {
			queue = strings.Join(w.Queue, " > ")
		}
		b.WriteString(labelStyle.Render("Queue      ") + queue)
		panels = append(panels, panelStyle.Render(b.String()))
	}
	return strings.Join(panels, "\n") + "\n"
}

// renderTotals draws live counters and the persisted per-plan totals.
func renderTotals(totals *TotalsView) string {
	if totals == nil {
		return "\n  Loading totals...\n"
	}

	var b strings.Builder
	b.WriteString(listTitleStyle.Render("This run") + "\n")
	b.WriteString(fmt.Sprintf("  %-20s %8d completed  cost %10.2f  profit %10.2f\n\n",
		totals.Plan, totals.Live.Completed, totals.Live.Cost, totals.Live.Profit))

	b.WriteString(listTitleStyle.Render("All runs") + "\n")
	if len(totals.Persisted) == 0 {
		b.WriteString("  Nothing produced yet.\n")
	}
	for _, t := range totals.Persisted {
		b.WriteString(fmt.Sprintf("  %-20s %8d completed  cost %10.2f  profit %10.2f\n",
			t.Plan, t.Completed, t.Cost, t.Profit))
	}
	return b.String()
}

// renderAudit draws the newest audit entries first.
func renderAudit(entries []models.PDREntry, height int) string {
	if len(entries) == 0 {
		return "\n  No audit entries.\n"
	}

	var b strings.Builder
	for i, e := range entries {
		if i >= height {
			break
		}
		outcome := lipgloss.NewStyle().Foreground(successColor).Render(e.Outcome)
		if e.Outcome == models.OutcomeError {
			outcome = lipgloss.NewStyle().Foreground(errorColor).Render(e.Outcome)
		}
		b.WriteString(fmt.Sprintf("  %s  %-18s %s  %s\n",
			e.Timestamp.Local().Format("15:04:05"), e.Action, outcome, e.Details))
	}
	return b.String()
}
