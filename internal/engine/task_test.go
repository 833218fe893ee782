package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/fentz26/fabrik/internal/plan"
)

func TestApplyProgressMonotonic(t *testing.T) {
	task := &Task{Name: "sand", Length: 4}

	efforts := []float64{0, 0.5, 1, 0, 2.5, 3}
	prev := task.Completion()
	for _, effort := range efforts {
		if err := task.ApplyProgress(effort); err != nil {
			t.Fatalf("ApplyProgress(%v) failed: %v", effort, err)
		}
		got := task.Completion()
		if got < prev {
			t.Fatalf("Completion decreased from %v to %v", prev, got)
		}
		if got > 1 {
			t.Fatalf("Completion %v exceeds 1", got)
		}
		prev = got
	}
	if !task.IsComplete() {
		t.Errorf("Expected task to be complete, completion %v", task.Completion())
	}
}

func TestApplyProgressRejectsNegativeEffort(t *testing.T) {
	task := &Task{Name: "sand", Length: 2}
	if err := task.ApplyProgress(1); err != nil {
		t.Fatalf("ApplyProgress failed: %v", err)
	}

	err := task.ApplyProgress(-0.5)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("Expected invariant violation, got %v", err)
	}
	if task.Completion() != 0.5 {
		t.Errorf("Expected completion 0.5 after rejected effort, got %v", task.Completion())
	}

	for _, effort := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := task.ApplyProgress(effort); !errors.Is(err, ErrInvariant) {
			t.Errorf("Expected invariant violation for effort %v, got %v", effort, err)
		}
	}
	if task.Completion() != 0.5 {
		t.Errorf("Expected completion 0.5 after non-finite effort, got %v", task.Completion())
	}
}

func TestApplyProgressRejectsNonPositiveLength(t *testing.T) {
	task := &Task{Name: "broken", Length: 0}

	err := task.ApplyProgress(1)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
	if task.Completion() != 0 {
		t.Errorf("Expected completion untouched, got %v", task.Completion())
	}
}

func TestEffortCostUnit(t *testing.T) {
	task := &Task{Length: 2}
	if got := task.EffortCostUnit(); got != 0.02 {
		t.Errorf("Expected effort cost 0.02, got %v", got)
	}
}

func TestArenaMayBeWorked(t *testing.T) {
	arena, err := buildArena(1, plan.Default())
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	wood, _ := arena.Lookup("get-wood")
	punch, _ := arena.Lookup("punch-cork")

	ok, err := arena.MayBeWorked(wood)
	if err != nil || !ok {
		t.Fatalf("Expected task without dependencies to be eligible, got %v (%v)", ok, err)
	}
	ok, err = arena.MayBeWorked(punch)
	if err != nil || ok {
		t.Fatalf("Expected punch to wait for wood, got %v (%v)", ok, err)
	}

	woodTask, _ := arena.Task(wood)
	if err := woodTask.ApplyProgress(woodTask.Length); err != nil {
		t.Fatalf("ApplyProgress failed: %v", err)
	}
	ok, err = arena.MayBeWorked(punch)
	if err != nil || !ok {
		t.Errorf("Expected punch eligible once wood is done, got %v (%v)", ok, err)
	}
}

func TestArenaRejectsForeignGeneration(t *testing.T) {
	arena, err := buildArena(3, plan.Default())
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}

	if _, err := arena.Task(TaskID{Gen: 2, Index: 0}); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected invariant violation for stale generation, got %v", err)
	}
	if _, err := arena.Task(TaskID{Gen: 3, Index: 99}); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected invariant violation for out of range index, got %v", err)
	}
}
