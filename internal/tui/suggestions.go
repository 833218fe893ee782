package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Suggestions provides autocomplete for slash commands
type Suggestions struct {
	items       []SuggestionItem
	filtered    []SuggestionItem
	selectedIdx int
	visible     bool
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
}

var commandSuggestions = []SuggestionItem{
	{Text: "pause", Description: "Suspend the tick driver"},
	{Text: "resume", Description: "Continue the tick driver"},
	{Text: "refresh", Description: "Reload status and totals"},
	{Text: "workers", Description: "Show worker energy and queues"},
	{Text: "tasks", Description: "Show the active product"},
	{Text: "totals", Description: "Show production totals"},
	{Text: "audit", Description: "Show recent audit entries"},
	{Text: "quit", Description: "Leave the dashboard"},
}

// NewSuggestions creates a new suggestions handler
func NewSuggestions() *Suggestions {
	return &Suggestions{items: commandSuggestions}
}

// Update updates suggestions based on current input
func (s *Suggestions) Update(input string) {
	if !strings.HasPrefix(input, "/") || strings.Contains(input, " ") {
		s.visible = false
		s.filtered = nil
		return
	}
	s.visible = true
	s.filter(strings.ToLower(strings.TrimPrefix(input, "/")))
}

func (s *Suggestions) filter(query string) {
	if query == "" {
		s.filtered = s.items
		s.selectedIdx = 0
		return
	}

	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		if strings.HasPrefix(item.Text, query) {
			s.filtered = append(s.filtered, item)
		}
	}
	s.selectedIdx = 0
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.visible || len(s.filtered) == 0 || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(max(width-4, 20))

	selected := lipgloss.NewStyle().
		Background(primaryColor).
		Foreground(fgColor).
		Bold(true)

	item := lipgloss.NewStyle().Foreground(fgColor)
	desc := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render("Commands"))
	b.WriteString("\n")

	maxVisible := 5
	for i, it := range s.filtered {
		if i >= maxVisible {
			b.WriteString(desc.Render(fmt.Sprintf("  ... and %d more", len(s.filtered)-maxVisible)))
			break
		}
		if i == s.selectedIdx {
			b.WriteString(selected.Render("▶ "+it.Text) + " " + selected.Render(it.Description))
		} else {
			b.WriteString(item.Render("  "+it.Text) + " " + desc.Render(it.Description))
		}
		b.WriteString("\n")
	}

	return boxStyle.Render(b.String())
}
