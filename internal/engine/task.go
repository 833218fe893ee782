package engine

import (
	"fmt"
	"math"
	"sync"
)

// EffortDivisor scales a task's length into the energy a single tick of work
// on it costs: longer tasks are more tiring per tick.
const EffortDivisor = 100

// TaskID addresses a task inside one arena generation.
type TaskID struct {
	Gen   uint32 `json:"gen"`
	Index uint32 `json:"index"`
}

func (id TaskID) String() string {
	return fmt.Sprintf("%d:%d", id.Gen, id.Index)
}

// Task is a unit of work. Everything but completion is fixed at creation.
type Task struct {
	ID           TaskID
	Template     string
	Name         string
	Length       float64
	Dependencies []TaskID

	mu         sync.Mutex
	completion float64
}

// Completion returns the completed fraction in [0,1].
func (t *Task) Completion() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completion
}

// IsComplete reports whether the task needs no more work.
func (t *Task) IsComplete() bool {
	return t.Completion() >= 1
}

// ApplyProgress adds effort/length to the completion, clamped to 1.
func (t *Task) ApplyProgress(effort float64) error {
	if !(t.Length > 0) {
		return configf("task %s has non-positive length %v", t.Name, t.Length)
	}
	if !(effort >= 0) || math.IsInf(effort, 1) {
		return invariantf("invalid effort %v applied to task %s", effort, t.Name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completion += effort / t.Length
	if t.completion > 1 {
		t.completion = 1
	}
	return nil
}

// EffortCostUnit is the energy a worker spends per tick on this task.
func (t *Task) EffortCostUnit() float64 {
	return t.Length / EffortDivisor
}
