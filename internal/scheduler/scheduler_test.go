package scheduler

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/fabrik/internal/audit"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/plan"
	"github.com/fentz26/fabrik/internal/store"
)

func TestStepPersistsCompletions(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	wf := newTestWorkflow(t)
	sch := New(wf, s, audit.NewPDRWriter(s), nil)

	var archived int
	for i := 0; i < 50; i++ {
		res, err := sch.Step()
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if res.Archived != nil {
			archived++
		}
	}
	if archived == 0 {
		t.Fatal("Expected at least one product in 50 ticks")
	}

	totals, err := s.GetTotals(plan.Default().Name)
	if err != nil {
		t.Fatalf("GetTotals failed: %v", err)
	}
	if totals == nil || totals.Completed != uint64(archived) {
		t.Fatalf("Expected %d persisted completions, got %+v", archived, totals)
	}
	if totals.Completed != wf.CompletedCount() {
		t.Errorf("Expected store and workflow counts to agree, got %d and %d", totals.Completed, wf.CompletedCount())
	}

	entries, err := s.ListPDR(100)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	completions := 0
	for _, e := range entries {
		if e.Action == audit.ActionProductComplete {
			completions++
			if e.RunID != wf.RunID() {
				t.Errorf("Expected run id %s, got %s", wf.RunID(), e.RunID)
			}
		}
	}
	if completions != archived {
		t.Errorf("Expected %d completion records, got %d", archived, completions)
	}

	stats := sch.GetStats()
	if stats["persisted"].(uint64) != uint64(archived) {
		t.Errorf("Expected persisted %d, got %v", archived, stats["persisted"])
	}
}

func TestStepWithoutStore(t *testing.T) {
	sch := New(newTestWorkflow(t), nil, nil, nil)
	for i := 0; i < 10; i++ {
		if _, err := sch.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	res, ok := sch.LastResult()
	if !ok || res.Tick != 10 {
		t.Errorf("Expected last result for tick 10, got %+v", res)
	}
}

func TestSchedulerRunsToMaxTicks(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	wf := newTestWorkflow(t)
	sch := New(wf, s, audit.NewPDRWriter(s), &Config{Interval: 5 * time.Millisecond, MaxTicks: 20})
	if err := sch.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sch.Stop()

	select {
	case <-sch.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for scheduler to reach max ticks")
	}

	if wf.Ticks() != 20 {
		t.Errorf("Expected 20 ticks, got %d", wf.Ticks())
	}
	if _, err := sch.Step(); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped after max ticks, got %v", err)
	}

	entries, err := s.ListPDR(0)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Action == audit.ActionWorkflowStart {
			found = true
		}
	}
	if !found {
		t.Error("Expected a workflow.start record")
	}
}

func TestSchedulerPauseResume(t *testing.T) {
	wf := newTestWorkflow(t)
	sch := New(wf, nil, nil, &Config{Interval: 5 * time.Millisecond, StartPaused: true})
	if err := sch.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sch.Stop()

	time.Sleep(50 * time.Millisecond)
	if ticks := sch.GetStats()["ticks"].(uint64); ticks != 0 {
		t.Fatalf("Expected no ticks while paused, got %d", ticks)
	}

	// A paused driver can still be stepped by hand.
	if _, err := sch.Step(); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if !sch.Paused() {
		t.Error("Expected driver still paused after Step")
	}

	if err := sch.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for sch.GetStats()["ticks"].(uint64) < 5 {
		select {
		case <-deadline:
			t.Fatal("Timeout waiting for ticks after resume")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := sch.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if !sch.Paused() {
		t.Error("Expected driver paused")
	}
}

func TestSchedulerStop(t *testing.T) {
	sch := New(newTestWorkflow(t), nil, nil, &Config{Interval: time.Hour})
	if err := sch.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sch.Stop()

	select {
	case <-sch.Done():
	default:
		t.Fatal("Expected Done to be closed after Stop")
	}
	if _, err := sch.Step(); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if err := sch.Pause(); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped from Pause, got %v", err)
	}
	if err := sch.Start(); err == nil {
		t.Error("Expected restart to fail")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config valid, got %v", err)
	}
	sch := New(newTestWorkflow(t), nil, nil, &Config{Interval: 0})
	if err := sch.Start(); err == nil {
		t.Error("Expected zero interval to be rejected")
	}
}

func newTestWorkflow(t *testing.T) *engine.Workflow {
	wf, err := engine.New(plan.Default())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	return wf
}

func newTestStore(t *testing.T) *store.Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
