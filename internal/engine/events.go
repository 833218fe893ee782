package engine

import "fmt"

// EntityKind tags which kind of entity an event is about. Presentation
// adapters style events by kind.
type EntityKind string

const (
	KindWorkflow EntityKind = "workflow"
	KindProduct  EntityKind = "product"
	KindWorker   EntityKind = "worker"
	KindTask     EntityKind = "task"
)

// Level separates routine chatter from milestones.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelFault   Level = "fault"
)

// Event is a narrated step of the simulation.
type Event struct {
	Tick    uint64     `json:"tick"`
	Kind    EntityKind `json:"kind"`
	Name    string     `json:"name"`
	Level   Level      `json:"level"`
	Message string     `json:"message"`
}

// EventSink receives events synchronously from inside a tick. Implementations
// must not call back into the workflow.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

// narrator stamps events with the current tick before handing them to the sink.
type narrator struct {
	sink EventSink
	tick uint64
}

func (n narrator) emit(kind EntityKind, name string, level Level, format string, args ...any) {
	if n.sink == nil {
		return
	}
	n.sink.Emit(Event{
		Tick:    n.tick,
		Kind:    kind,
		Name:    name,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

func (n narrator) worker(w *Worker, level Level, format string, args ...any) {
	n.emit(KindWorker, w.Name, level, format, args...)
}

func (n narrator) task(t *Task, level Level, format string, args ...any) {
	n.emit(KindTask, t.Name, level, format, args...)
}

func (n narrator) product(p *Product, level Level, format string, args ...any) {
	n.emit(KindProduct, p.Name, level, format, args...)
}
