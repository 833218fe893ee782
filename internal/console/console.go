// Package console narrates workflow events as coloured log lines.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/fabrik/internal/engine"
)

// Sink writes one line per event. It implements engine.EventSink.
type Sink struct {
	mu       sync.Mutex
	out      io.Writer
	verbose  bool
	labels   map[engine.EntityKind]lipgloss.Style
	success  lipgloss.Style
	fault    lipgloss.Style
	tick     lipgloss.Style
	lastTick uint64
}

// Option customizes a Sink.
type Option func(*Sink)

// WithTickHeaders prints a separator whenever the tick number changes.
func WithTickHeaders() Option {
	return func(s *Sink) { s.verbose = true }
}

// New creates a sink writing to out. Colours follow out's terminal profile,
// so redirected output stays plain.
func New(out io.Writer, opts ...Option) *Sink {
	r := lipgloss.NewRenderer(out)
	s := &Sink{
		out: out,
		labels: map[engine.EntityKind]lipgloss.Style{
			engine.KindProduct:  r.NewStyle().Foreground(lipgloss.Color("4")),
			engine.KindWorker:   r.NewStyle().Foreground(lipgloss.Color("5")),
			engine.KindTask:     r.NewStyle().Foreground(lipgloss.Color("3")),
			engine.KindWorkflow: r.NewStyle().Foreground(lipgloss.Color("6")),
		},
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		fault:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		tick:    r.NewStyle().Faint(true),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Label renders the coloured entity name, e.g. "(task) Get wood".
func (s *Sink) Label(kind engine.EntityKind, name string) string {
	text := fmt.Sprintf("(%s) %s", noun(kind), name)
	if st, ok := s.labels[kind]; ok {
		return st.Render(text)
	}
	return text
}

func noun(kind engine.EntityKind) string {
	if kind == engine.KindWorker {
		return "employee"
	}
	return string(kind)
}

// Emit writes the event.
func (s *Sink) Emit(e engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.verbose && e.Tick != s.lastTick {
		s.lastTick = e.Tick
		fmt.Fprintln(s.out, s.tick.Render(fmt.Sprintf("--- tick %d ---", e.Tick)))
	}

	prefix := ""
	switch e.Level {
	case engine.LevelSuccess:
		prefix = s.success.Render("!!")
	case engine.LevelFault:
		prefix = s.fault.Render("XX")
	}
	fmt.Fprintf(s.out, "%s%s: %s\n", prefix, s.Label(e.Kind, e.Name), e.Message)
}
