package tui

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/fabrik/internal/audit"
	"github.com/fentz26/fabrik/internal/controlplane"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/plan"
	"github.com/fentz26/fabrik/internal/scheduler"
	"github.com/fentz26/fabrik/internal/store"
)

func TestClientAgainstDaemon(t *testing.T) {
	url, driver := newTestDaemon(t)
	for i := 0; i < 3; i++ {
		if _, err := driver.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}

	client := NewClient(url)
	snap, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if snap.Tick != 3 {
		t.Errorf("Expected tick 3, got %d", snap.Tick)
	}
	if snap.Product.Name != "Bottle cork" {
		t.Errorf("Expected product Bottle cork, got %s", snap.Product.Name)
	}

	totals, err := client.Totals()
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.Plan != plan.Default().Name {
		t.Errorf("Expected plan %s, got %s", plan.Default().Name, totals.Plan)
	}

	health, err := client.Health()
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !health.OK || health.Driver != "running" {
		t.Errorf("Expected healthy running driver, got %+v", health)
	}

	if err := client.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	health, _ = client.Health()
	if health.Driver != "paused" {
		t.Errorf("Expected paused driver, got %s", health.Driver)
	}
	if err := client.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	entries, err := client.Audit(10)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("Expected pause and resume audit entries, got %d", len(entries))
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Status()
	if err == nil || !strings.Contains(err.Error(), "API error: boom") {
		t.Errorf("Expected API error, got %v", err)
	}
	if err := NewClient(srv.URL).Pause(); err == nil {
		t.Error("Expected pause to fail")
	}
}

func TestAppRendersSnapshot(t *testing.T) {
	wf, err := engine.New(plan.Default())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	if _, err := wf.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	app := New("http://127.0.0.1:0")
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app.Update(statusLoadedMsg{snapshot: wf.Snapshot()})
	app.Update(daemonStatusMsg{online: true, driver: "running"})

	view := app.View()
	for _, want := range []string{"make-bottle-corks", "tick 1", "Bottle cork #1", "Get wood", "Punch cork", "waiting", "DAEMON running"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected tasks view to contain %q", want)
		}
	}

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.mode != "workers" {
		t.Fatalf("Expected workers view, got %s", app.mode)
	}
	view = app.View()
	for _, want := range []string{"(employee) Stefan", "(employee) Louise", "working", "blocked", "shelve-cork"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected workers view to contain %q", want)
		}
	}
}

func TestAppOfflineAndErrors(t *testing.T) {
	app := New("http://127.0.0.1:0")
	view := app.View()
	if !strings.Contains(view, "DAEMON offline") {
		t.Error("Expected offline daemon indicator")
	}
	if !strings.Contains(view, "Waiting for the daemon") {
		t.Error("Expected placeholder before first snapshot")
	}

	app.Update(errMsg{err: http.ErrServerClosed})
	if !strings.HasPrefix(app.message, "Error: ") {
		t.Errorf("Expected error message, got %q", app.message)
	}
}

func TestAppQuitKey(t *testing.T) {
	app := New("http://127.0.0.1:0")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestExecuteCommand(t *testing.T) {
	url, driver := newTestDaemon(t)
	app := New(url)

	msg := app.executeCommand("/pause")()
	if res, ok := msg.(commandResultMsg); !ok || res.message != "Workflow paused" {
		t.Errorf("Expected pause result, got %#v", msg)
	}
	if !driver.Paused() {
		t.Error("Expected driver paused")
	}

	msg = app.executeCommand("resume")()
	if res, ok := msg.(commandResultMsg); !ok || res.message != "Workflow resumed" {
		t.Errorf("Expected resume result, got %#v", msg)
	}

	msg = app.executeCommand("explode")()
	if res, ok := msg.(commandResultMsg); !ok || !strings.Contains(res.message, "Unknown command") {
		t.Errorf("Expected unknown command, got %#v", msg)
	}

	driver.Stop()
	msg = app.executeCommand("pause")()
	if res, ok := msg.(commandResultMsg); !ok || !strings.HasPrefix(res.message, "Error:") {
		t.Errorf("Expected error after stop, got %#v", msg)
	}
}

func TestSuggestionsFilter(t *testing.T) {
	s := NewSuggestions()

	s.Update("pa")
	if s.IsVisible() {
		t.Error("Expected no suggestions without slash")
	}

	s.Update("/")
	if !s.IsVisible() || len(s.filtered) != len(commandSuggestions) {
		t.Errorf("Expected all commands, got %d", len(s.filtered))
	}

	s.Update("/re")
	if len(s.filtered) != 2 {
		t.Fatalf("Expected refresh and resume, got %d", len(s.filtered))
	}
	if got := s.Selected().Text; got != "resume" {
		t.Errorf("Expected resume first, got %s", got)
	}
	s.Next()
	if got := s.Selected().Text; got != "refresh" {
		t.Errorf("Expected refresh, got %s", got)
	}
	s.Next()
	if got := s.Selected().Text; got != "resume" {
		t.Errorf("Expected wrap to resume, got %s", got)
	}

	s.Update("/zzz")
	if s.IsVisible() || s.Selected() != nil {
		t.Error("Expected no matches")
	}
}

func newTestDaemon(t *testing.T) (string, *scheduler.Scheduler) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	wf, err := engine.New(plan.Default())
	if err != nil {
		t.Fatalf("Failed to create workflow: %v", err)
	}
	pdr := audit.NewPDRWriter(st)
	driver := scheduler.New(wf, st, pdr, nil)
	service := controlplane.NewService(driver, st, pdr)
	srv := httptest.NewServer(controlplane.NewServer(service, st, "127.0.0.1:0").Handler())
	t.Cleanup(srv.Close)

	return srv.URL, driver
}
