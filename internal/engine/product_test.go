package engine

import (
	"testing"

	"github.com/fentz26/fabrik/internal/plan"
)

func TestProductCompletionFraction(t *testing.T) {
	arena, err := buildArena(1, plan.Default())
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	product := newProduct("Bottle cork", 1, arena)

	if got := product.CompletionFraction(); got != 0 {
		t.Fatalf("Expected 0, got %v", got)
	}
	ids := product.Required()
	if len(ids) != 3 {
		t.Fatalf("Expected 3 required tasks, got %d", len(ids))
	}

	task, _ := arena.Task(ids[0])
	if err := task.ApplyProgress(task.Length); err != nil {
		t.Fatalf("ApplyProgress failed: %v", err)
	}
	if got := product.CompletionFraction(); got != 1.0/3 {
		t.Errorf("Expected 1/3, got %v", got)
	}
	if product.IsComplete() {
		t.Error("Expected product incomplete")
	}
	// Repeated queries do not change anything.
	if product.CompletionFraction() != product.CompletionFraction() {
		t.Error("Expected identical repeated queries")
	}
}

func TestProductProfitUsesMargin(t *testing.T) {
	arena, err := buildArena(1, singleTaskPlan(5))
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	product := newProduct("Widget", 1, arena)

	if product.TotalCost() != 5 {
		t.Errorf("Expected cost 5, got %v", product.TotalCost())
	}
	if product.Profit(0.5) != 2.5 {
		t.Errorf("Expected profit 2.5, got %v", product.Profit(0.5))
	}
}

func TestEmptyProductIsComplete(t *testing.T) {
	arena, err := buildArena(1, plan.Plan{Name: "empty"})
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	product := newProduct("Air", 1, arena)
	if !product.IsComplete() || product.CompletionFraction() != 1 {
		t.Errorf("Expected empty product complete, got %v", product.CompletionFraction())
	}
}

func TestProductWithUnknownTaskNeverCompletes(t *testing.T) {
	arena, err := buildArena(1, singleTaskPlan(1))
	if err != nil {
		t.Fatalf("buildArena failed: %v", err)
	}
	product := newProduct("Widget", 1, arena)
	product.required = append(product.required, TaskID{Gen: 7, Index: 0})

	task, _ := arena.Task(product.required[0])
	if err := task.ApplyProgress(task.Length); err != nil {
		t.Fatalf("ApplyProgress failed: %v", err)
	}
	if got := product.CompletionFraction(); got != 0.5 {
		t.Errorf("Expected the unknown task to count as incomplete, got %v", got)
	}
	if product.IsComplete() {
		t.Error("Expected product with an unknown task to stay incomplete")
	}
}
