package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/fentz26/fabrik/internal/plan"
)

// singleTaskPlan assigns one task of the given length to one worker.
func singleTaskPlan(length float64) plan.Plan {
	return plan.Plan{
		Name:    "single",
		Product: "Widget",
		Tasks:   []plan.TaskTemplate{{ID: "haul", Length: length}},
		Workers: []plan.WorkerSpec{{ID: "w1", Productivity: 1, Tasks: []string{"haul"}}},
	}
}

func TestEnergyCurve(t *testing.T) {
	if got := EnergyCurve(1); got != 1 {
		t.Errorf("Expected curve(1) = 1, got %v", got)
	}
	if got := EnergyCurve(0); got != 0 {
		t.Errorf("Expected curve(0) = 0, got %v", got)
	}
	want := 1 - math.Pow(2, -5)
	if got := EnergyCurve(0.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected curve(0.5) = %v, got %v", want, got)
	}
	if EnergyCurve(0.9) < 0.99 {
		t.Errorf("Expected efficiency to stay near 1 at high energy, got %v", EnergyCurve(0.9))
	}
}

func TestWorkerQueueIsLIFO(t *testing.T) {
	w := NewWorker(plan.WorkerSpec{ID: "w1", Productivity: 1})
	first := TaskID{Gen: 1, Index: 0}
	second := TaskID{Gen: 1, Index: 1}
	w.Assign(first)
	w.Assign(second)

	queue := w.Queue()
	if len(queue) != 2 || queue[0] != second || queue[1] != first {
		t.Fatalf("Expected most recent assignment on top, got %v", queue)
	}
}

func TestWorkerIdleWithoutWork(t *testing.T) {
	arena, err := buildArena(1, singleTaskPlan(1))
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	w := NewWorker(plan.WorkerSpec{ID: "w1", Productivity: 1})

	state, err := w.Work(arena)
	if err != nil {
		t.Fatalf("Work failed: %v", err)
	}
	if state != WorkerIdle {
		t.Errorf("Expected idle, got %s", state)
	}
	if w.Energy() != 1 {
		t.Errorf("Expected idle worker to keep energy 1, got %v", w.Energy())
	}
}

func TestWorkerBlockedMakesNoProgress(t *testing.T) {
	p := plan.Plan{
		Name:    "blocked",
		Product: "Gadget",
		Tasks: []plan.TaskTemplate{
			{ID: "a", Length: 100},
			{ID: "b", Length: 1, DependsOn: []string{"a"}},
		},
		Workers: []plan.WorkerSpec{
			{ID: "w1", Productivity: 1, Tasks: []string{"a"}},
			{ID: "w2", Productivity: 1, Tasks: []string{"b"}},
		},
	}
	wf, err := New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, _ := wf.Arena().Lookup("b")
	bTask, _ := wf.Arena().Task(b)
	blocked := wf.Workers()[1]

	for i := 0; i < 5; i++ {
		res, err := wf.Tick()
		if err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		if res.Workers[1].State != WorkerBlocked {
			t.Fatalf("Tick %d: expected w2 blocked, got %s", res.Tick, res.Workers[1].State)
		}
		if bTask.Completion() != 0 {
			t.Fatalf("Tick %d: blocked task progressed to %v", res.Tick, bTask.Completion())
		}
		if blocked.Energy() != 1 {
			t.Fatalf("Tick %d: blocked worker spent energy, now %v", res.Tick, blocked.Energy())
		}
		if id, ok := blocked.CurrentTask(); !ok || id != b {
			t.Fatalf("Tick %d: expected blocked task kept as current", res.Tick)
		}
	}
}

func TestWorkerFullRestCycle(t *testing.T) {
	wf, err := New(singleTaskPlan(50))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	w := wf.Workers()[0]
	id, _ := wf.Arena().Lookup("haul")
	task, _ := wf.Arena().Task(id)

	// effort cost 0.5 per tick drains energy in two ticks
	for i := 0; i < 2; i++ {
		if _, err := wf.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	if w.Energy() != 0 {
		t.Fatalf("Expected energy 0 after two ticks, got %v", w.Energy())
	}

	progress := task.Completion()
	for i := 1; i <= RestTicks; i++ {
		res, err := wf.Tick()
		if err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		want := WorkerResting
		if i == 1 {
			want = WorkerExhausted
		}
		if res.Workers[0].State != want {
			t.Fatalf("Rest tick %d: expected %s, got %s", i, want, res.Workers[0].State)
		}
		if task.Completion() != progress {
			t.Fatalf("Rest tick %d: progress applied while resting", i)
		}
		if e := w.Energy(); e < 0 || e > 1 {
			t.Fatalf("Rest tick %d: energy %v out of range", i, e)
		}
		if _, ok := w.CurrentTask(); !ok {
			t.Fatalf("Rest tick %d: rest dropped the current task", i)
		}
	}

	if w.Energy() != 1 {
		t.Errorf("Expected energy 1 after rest, got %v", w.Energy())
	}
	if w.RestTimer() != -1 {
		t.Errorf("Expected rest timer -1 after rest, got %d", w.RestTimer())
	}

	res, err := wf.Tick()
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if res.Workers[0].State != WorkerWorking {
		t.Errorf("Expected worker back at work after rest, got %s", res.Workers[0].State)
	}
	if task.Completion() <= progress {
		t.Errorf("Expected progress after rest, completion still %v", task.Completion())
	}
}

func TestWorkerRestsBelowThreshold(t *testing.T) {
	wf, err := New(singleTaskPlan(30))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	w := wf.Workers()[0]

	// 1.0 -> 0.7 -> 0.4 -> 0.1
	for i := 0; i < 3; i++ {
		if _, err := wf.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	if w.Energy() >= RestThreshold || w.Energy() == 0 {
		t.Fatalf("Expected energy in (0, %v), got %v", RestThreshold, w.Energy())
	}

	res, err := wf.Tick()
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if res.Workers[0].State != WorkerResting {
		t.Errorf("Expected resting, got %s", res.Workers[0].State)
	}
	if w.RestTimer() != RestTicks-1 {
		t.Errorf("Expected rest timer %d, got %d", RestTicks-1, w.RestTimer())
	}
}

func TestWorkerEnergyStaysInRange(t *testing.T) {
	wf, err := New(singleTaskPlan(400))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	w := wf.Workers()[0]
	for i := 0; i < 200; i++ {
		if _, err := wf.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		if e := w.Energy(); e < 0 || e > 1 {
			t.Fatalf("Tick %d: energy %v out of range", i+1, e)
		}
	}
}

func TestWorkerForeignTaskIsInvariantViolation(t *testing.T) {
	arena, err := buildArena(2, singleTaskPlan(1))
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	w := NewWorker(plan.WorkerSpec{ID: "w1", Productivity: 1})
	w.Assign(TaskID{Gen: 1, Index: 0})

	_, err = w.Work(arena)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("Expected invariant violation, got %v", err)
	}
	if _, ok := w.CurrentTask(); ok {
		t.Errorf("Expected foreign task to be dropped")
	}
}
