package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fentz26/fabrik/internal/audit"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
	"github.com/fentz26/fabrik/internal/plan"
	"github.com/fentz26/fabrik/internal/store"
)

// ErrStopped is returned once the driver has stopped ticking.
var ErrStopped = errors.New("driver stopped")

// Scheduler owns the only goroutine that ticks the workflow. Every read from
// other goroutines goes through its mutex.
type Scheduler struct {
	wf     *engine.Workflow
	store  *store.Store
	pdr    *audit.PDRWriter
	config *Config

	mu        sync.Mutex
	paused    bool
	stopped   bool
	started   bool
	err       error
	last      *engine.TickResult
	faults    uint64
	persisted uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a new driver. The store and PDR writer may be nil, in which
// case completions are not persisted.
func New(wf *engine.Workflow, s *store.Store, pdr *audit.PDRWriter, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		wf:     wf,
		store:  s,
		pdr:    pdr,
		config: cfg,
		paused: cfg.StartPaused,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start begins the tick loop.
func (sch *Scheduler) Start() error {
	if err := sch.config.Validate(); err != nil {
		return err
	}

	sch.mu.Lock()
	if sch.started || sch.stopped {
		sch.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	sch.started = true
	sch.mu.Unlock()

	p := sch.wf.Plan()
	sch.record(audit.ActionWorkflowStart, map[string]interface{}{
		"plan":     p.Name,
		"interval": sch.config.Interval.String(),
	}, models.OutcomeSuccess, fmt.Sprintf("Started %s production", p.Product))

	sch.wg.Add(1)
	go sch.loop()
	slog.Info("scheduler started", "plan", p.Name, "run", sch.wf.RunID(), "interval", sch.config.Interval)
	return nil
}

// Stop gracefully stops the tick loop. It never interrupts a tick.
func (sch *Scheduler) Stop() {
	sch.cancel()
	sch.wg.Wait()

	sch.mu.Lock()
	sch.stopped = true
	ticks := sch.wf.Ticks()
	sch.mu.Unlock()
	sch.doneOnce.Do(func() { close(sch.done) })
	slog.Info("scheduler stopped", "ticks", ticks)
}

// Done is closed once the driver has stopped, whether by Stop, MaxTicks or a
// failed reset.
func (sch *Scheduler) Done() <-chan struct{} {
	return sch.done
}

func (sch *Scheduler) loop() {
	defer sch.wg.Done()
	defer sch.doneOnce.Do(func() { close(sch.done) })

	ticker := time.NewTicker(sch.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-sch.ctx.Done():
			return
		case <-ticker.C:
			if sch.isPaused() {
				continue
			}
			if _, err := sch.Step(); err != nil || sch.isStopped() {
				return
			}
		}
	}
}

// Step runs exactly one tick. It works whether or not the loop is running,
// so a paused driver can be advanced by hand.
func (sch *Scheduler) Step() (engine.TickResult, error) {
	sch.mu.Lock()
	defer sch.mu.Unlock()

	if sch.stopped {
		return engine.TickResult{}, ErrStopped
	}

	res, err := sch.wf.Tick()
	sch.last = &res
	for _, f := range res.Faults {
		sch.faults++
		slog.Warn("invariant violation", "tick", res.Tick, "worker", f.Worker, "error", f.Detail)
	}

	if err != nil {
		sch.err = err
		sch.stopped = true
		slog.Error("workflow reset failed, previous cycle kept", "tick", res.Tick, "error", err)
		sch.record(audit.ActionWorkflowReset, map[string]interface{}{
			"tick": res.Tick,
		}, models.OutcomeError, err.Error())
		return res, err
	}

	if res.Archived != nil {
		sch.persist(*res.Archived)
	}
	if sch.config.MaxTicks > 0 && res.Tick >= sch.config.MaxTicks {
		sch.stopped = true
		slog.Info("scheduler reached max ticks", "ticks", res.Tick)
	}
	return res, nil
}

// persist stores a finished product's contribution to the totals. Caller
// holds sch.mu.
func (sch *Scheduler) persist(a engine.ArchivedProduct) {
	planName := sch.wf.Plan().Name
	slog.Info("product completed", "product", a.Name, "serial", a.Serial, "cost", a.Cost, "profit", a.Profit, "tick", a.Tick)

	if sch.store != nil {
		if _, err := sch.store.RecordCompletion(planName, a.Cost, a.Profit); err != nil {
			slog.Error("failed to record completion", "plan", planName, "error", err)
		} else {
			sch.persisted++
		}
	}
	sch.record(audit.ActionProductComplete, a, models.OutcomeSuccess,
		fmt.Sprintf("Made %s #%d", a.Name, a.Serial))
}

func (sch *Scheduler) record(action string, inputs interface{}, outcome, details string) {
	if sch.pdr == nil {
		return
	}
	if _, err := sch.pdr.Record(action, inputs, outcome, sch.wf.RunID(), details); err != nil {
		slog.Error("failed to write pdr", "action", action, "error", err)
	}
}

func (sch *Scheduler) isStopped() bool {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.stopped
}

func (sch *Scheduler) isPaused() bool {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.paused
}

// Pause suspends ticking without stopping the loop.
func (sch *Scheduler) Pause() error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.stopped {
		return ErrStopped
	}
	if !sch.paused {
		sch.paused = true
		sch.record(audit.ActionWorkflowPause, map[string]interface{}{"tick": sch.wf.Ticks()}, models.OutcomeSuccess, "")
	}
	return nil
}

// Resume continues ticking after Pause.
func (sch *Scheduler) Resume() error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.stopped {
		return ErrStopped
	}
	if sch.paused {
		sch.paused = false
		sch.record(audit.ActionWorkflowResume, map[string]interface{}{"tick": sch.wf.Ticks()}, models.OutcomeSuccess, "")
	}
	return nil
}

// Paused reports whether ticking is suspended.
func (sch *Scheduler) Paused() bool {
	return sch.isPaused()
}

// Err returns the error that stopped the driver, if any.
func (sch *Scheduler) Err() error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.err
}

// Snapshot returns a consistent view of the workflow.
func (sch *Scheduler) Snapshot() engine.Snapshot {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.wf.Snapshot()
}

// Plan returns the plan being driven.
func (sch *Scheduler) Plan() plan.Plan {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.wf.Plan()
}

// LastResult returns the most recent tick result.
func (sch *Scheduler) LastResult() (engine.TickResult, bool) {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.last == nil {
		return engine.TickResult{}, false
	}
	return *sch.last, true
}

// GetStats returns current driver statistics.
func (sch *Scheduler) GetStats() map[string]interface{} {
	sch.mu.Lock()
	defer sch.mu.Unlock()

	stats := map[string]interface{}{
		"ticks":     sch.wf.Ticks(),
		"completed": sch.wf.CompletedCount(),
		"paused":    sch.paused,
		"stopped":   sch.stopped,
		"faults":    sch.faults,
		"persisted": sch.persisted,
		"interval":  sch.config.Interval.String(),
	}
	if sch.err != nil {
		stats["error"] = sch.err.Error()
	}
	return stats
}
