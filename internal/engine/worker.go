package engine

import (
	"math"

	"github.com/fentz26/fabrik/internal/plan"
)

// WorkerState is the outcome of a worker's last tick.
type WorkerState string

const (
	WorkerIdle      WorkerState = "idle"
	WorkerBlocked   WorkerState = "blocked"
	WorkerWorking   WorkerState = "working"
	WorkerResting   WorkerState = "resting"
	WorkerExhausted WorkerState = "exhausted"
)

const (
	// RestThreshold is the energy below which a worker stops to rest.
	RestThreshold = 0.2
	// RestTicks is the length of a rest, including the tick it starts on.
	RestTicks = 10

	notResting = -1
)

// Worker executes one unit of work per tick on its current task.
type Worker struct {
	ID           string
	Name         string
	Wage         float64
	Productivity float64

	energy      float64
	restTimer   int
	queue       []TaskID // top of the stack is the last element
	current     TaskID
	hasCurrent  bool
	state       WorkerState
	workedTicks uint64
}

// NewWorker creates a rested, idle worker.
func NewWorker(spec plan.WorkerSpec) *Worker {
	return &Worker{
		ID:           spec.ID,
		Name:         spec.DisplayName(),
		Wage:         spec.Wage,
		Productivity: spec.Productivity,
		energy:       1,
		restTimer:    notResting,
		state:        WorkerIdle,
	}
}

// EnergyCurve maps energy to an efficiency factor with an ease-out
// exponential: near 1 until energy runs low, then a sharp drop.
func EnergyCurve(e float64) float64 {
	if e >= 1 {
		return 1
	}
	if e <= 0 {
		return 0
	}
	return 1 - math.Pow(2, -10*e)
}

// Efficiency is the progress the worker would apply this tick.
func (w *Worker) Efficiency() float64 {
	return w.Productivity * EnergyCurve(w.energy)
}

// Energy returns the remaining energy in [0,1].
func (w *Worker) Energy() float64 { return w.energy }

// RestTimer returns the remaining rest ticks, or -1 when not resting.
func (w *Worker) RestTimer() int { return w.restTimer }

// State returns the state reached on the last tick.
func (w *Worker) State() WorkerState { return w.state }

// WorkedTicks counts ticks in which the worker applied progress.
func (w *Worker) WorkedTicks() uint64 { return w.workedTicks }

// CurrentTask returns the task being held, if any.
func (w *Worker) CurrentTask() (TaskID, bool) { return w.current, w.hasCurrent }

// Queue returns the pending tasks, next to be popped first.
func (w *Worker) Queue() []TaskID {
	out := make([]TaskID, 0, len(w.queue))
	for i := len(w.queue) - 1; i >= 0; i-- {
		out = append(out, w.queue[i])
	}
	return out
}

// Assign pushes a task onto the queue. The most recently assigned task is
// worked first.
func (w *Worker) Assign(id TaskID) {
	w.queue = append(w.queue, id)
}

func (w *Worker) pop() (TaskID, bool) {
	if len(w.queue) == 0 {
		return TaskID{}, false
	}
	id := w.queue[len(w.queue)-1]
	w.queue = w.queue[:len(w.queue)-1]
	return id, true
}

func (w *Worker) clearCurrent() {
	w.current = TaskID{}
	w.hasCurrent = false
}

// reset drops all task state ahead of a new production cycle. Energy and rest
// carry over.
func (w *Worker) reset() {
	w.queue = nil
	w.clearCurrent()
}

// Work runs a single tick for this worker alone against the arena's current
// state. Workflow.Tick is the normal entry point.
func (w *Worker) Work(arena *Arena) (WorkerState, error) {
	return w.step(arena, arena.freeze(), narrator{})
}

func (w *Worker) step(arena *Arena, v view, n narrator) (WorkerState, error) {
	if w.hasCurrent && v.isComplete(w.current) {
		w.clearCurrent()
	}
	if !w.hasCurrent {
		if id, ok := w.pop(); ok {
			w.current = id
			w.hasCurrent = true
		}
	}
	if !w.hasCurrent {
		w.state = WorkerIdle
		n.worker(w, LevelInfo, "No work for me to do!")
		return w.state, nil
	}

	task, err := arena.Task(w.current)
	if err != nil {
		w.clearCurrent()
		w.state = WorkerIdle
		return w.state, err
	}

	if w.restTimer > 0 || w.energy < RestThreshold {
		w.state = w.rest(n)
		return w.state, nil
	}

	if !v.mayBeWorked(task) {
		w.state = WorkerBlocked
		n.worker(w, LevelInfo, "Can't work on %s yet!", task.Name)
		return w.state, nil
	}

	w.state = WorkerWorking
	n.worker(w, LevelInfo, "Working on %s", task.Name)
	if err := task.ApplyProgress(w.Efficiency()); err != nil {
		return w.state, err
	}
	w.workedTicks++
	w.energy = math.Max(0, w.energy-task.EffortCostUnit())
	n.worker(w, LevelInfo, "My energy level is now %.2f%%", 100*EnergyCurve(w.energy))

	if task.IsComplete() {
		n.task(task, LevelInfo, "Now complete!")
		n.worker(w, LevelInfo, "Finished task %s", task.Name)
		w.clearCurrent()
	} else {
		n.task(task, LevelInfo, "%.2f%% complete", 100*task.Completion())
	}
	return w.state, nil
}

// rest counts one tick of the rest protocol, starting a rest if needed.
func (w *Worker) rest(n narrator) WorkerState {
	state := WorkerResting
	if w.restTimer == notResting {
		if w.energy == 0 {
			state = WorkerExhausted
			n.worker(w, LevelInfo, "Too tired to work! Burnt out!")
		}
		w.restTimer = RestTicks
	}
	w.restTimer--
	n.worker(w, LevelInfo, "Resting... %d", w.restTimer)
	if w.restTimer == 0 {
		w.energy = 1
		w.restTimer = notResting
	}
	return state
}
