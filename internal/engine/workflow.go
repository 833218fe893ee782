package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fentz26/fabrik/internal/plan"
)

// State enumerates workflow controller phases.
type State string

const (
	StateProducing State = "producing"
	// StateCompleted is only ever reported by the tick that archived a
	// product; the next product is already in production by then.
	StateCompleted State = "completed"
)

// Totals aggregates every archived product.
type Totals struct {
	Completed uint64  `json:"completed"`
	Cost      float64 `json:"cost"`
	Profit    float64 `json:"profit"`
}

// ArchivedProduct is what survives of a finished product.
type ArchivedProduct struct {
	Name       string  `json:"name"`
	Serial     int     `json:"serial"`
	Generation uint32  `json:"generation"`
	Cost       float64 `json:"cost"`
	Profit     float64 `json:"profit"`
	Tick       uint64  `json:"tick"`
}

// Fault is a runtime invariant violation observed during a tick. It is
// distinct from a worker being blocked, which is normal.
type Fault struct {
	Worker string `json:"worker"`
	Err    error  `json:"-"`
	Detail string `json:"detail"`
}

// WorkerTick records what one worker did in a tick.
type WorkerTick struct {
	ID     string      `json:"id"`
	State  WorkerState `json:"state"`
	Energy float64     `json:"energy"`
}

// TickResult reports a single tick.
type TickResult struct {
	Tick           uint64           `json:"tick"`
	State          State            `json:"state"`
	Completion     float64          `json:"completion"`
	Cost           float64          `json:"cost"`
	CompletedCount uint64           `json:"completed_count"`
	Workers        []WorkerTick     `json:"workers"`
	Archived       *ArchivedProduct `json:"archived,omitempty"`
	Faults         []Fault          `json:"faults,omitempty"`
}

// Workflow owns the workers, the active product and the plan both are rebuilt
// from. It is not safe for concurrent use.
type Workflow struct {
	plan    plan.Plan
	runID   string
	sink    EventSink
	workers []*Worker

	arena   *Arena
	product *Product

	tick         uint64
	state        State
	totals       Totals
	lastArchived *ArchivedProduct
}

// Option customizes a workflow.
type Option func(*Workflow)

// WithEventSink narrates every tick to sink.
func WithEventSink(sink EventSink) Option {
	return func(wf *Workflow) {
		wf.sink = sink
	}
}

// WithTotals seeds the aggregate counters, e.g. from persisted totals.
func WithTotals(t Totals) Option {
	return func(wf *Workflow) {
		wf.totals = t
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(wf *Workflow) {
		if id != "" {
			wf.runID = id
		}
	}
}

// New validates the plan and prepares the first product.
func New(p plan.Plan, opts ...Option) (*Workflow, error) {
	if err := p.Validate(); err != nil {
		return nil, asConfiguration(err)
	}
	wf := &Workflow{
		plan:  p.Clone(),
		runID: uuid.New().String(),
		state: StateProducing,
	}
	for _, opt := range opts {
		opt(wf)
	}
	wf.workers = make([]*Worker, 0, len(wf.plan.Workers))
	for _, spec := range wf.plan.Workers {
		wf.workers = append(wf.workers, NewWorker(spec))
	}
	arena, product, err := wf.build(1, int(wf.totals.Completed)+1)
	if err != nil {
		return nil, err
	}
	wf.install(arena, product)
	return wf, nil
}

// build instantiates the next generation from the plan without touching the
// running one.
func (wf *Workflow) build(gen uint32, serial int) (*Arena, *Product, error) {
	arena, err := buildArena(gen, wf.plan)
	if err != nil {
		return nil, nil, fmt.Errorf("workflow %s: building generation %d: %w", wf.plan.Name, gen, err)
	}
	for _, spec := range wf.plan.Workers {
		for _, ref := range spec.Tasks {
			if _, ok := arena.Lookup(ref); !ok {
				return nil, nil, fmt.Errorf("workflow %s: %w", wf.plan.Name,
					configf("worker %s assigned task %s outside the product", spec.ID, ref))
			}
		}
	}
	product := newProduct(wf.plan.Product, serial, arena)
	return arena, product, nil
}

// install swaps in a freshly built generation and hands every worker its
// queue. Assignment runs backwards through the plan so the first listed task
// ends up on top of the stack.
func (wf *Workflow) install(arena *Arena, product *Product) {
	wf.arena = arena
	wf.product = product
	n := wf.narrator()
	n.emit(KindWorkflow, wf.plan.Name, LevelSuccess, "Getting ready to start on %s #%d", product.Name, product.Serial)
	for i, w := range wf.workers {
		w.reset()
		spec := wf.plan.Workers[i]
		for j := len(spec.Tasks) - 1; j >= 0; j-- {
			id, _ := arena.Lookup(spec.Tasks[j])
			w.Assign(id)
		}
		for _, id := range w.Queue() {
			t, _ := arena.Task(id)
			n.worker(w, LevelInfo, "I have been assigned %s", t.Name)
		}
	}
	n.emit(KindWorkflow, wf.plan.Name, LevelSuccess, "TOTAL COST SO FAR: %.2f", wf.totals.Cost)
	n.emit(KindWorkflow, wf.plan.Name, LevelSuccess, "TOTAL PROFIT (naive) SO FAR: %.2f", wf.totals.Profit)
}

func (wf *Workflow) narrator() narrator {
	return narrator{sink: wf.sink, tick: wf.tick}
}

// Tick advances the simulation by one step: every worker acts once in plan
// order, then the product is checked. A complete product is archived and
// replaced. If the replacement cannot be built the error is returned and the
// previous cycle stays in place.
func (wf *Workflow) Tick() (TickResult, error) {
	wf.tick++
	wf.state = StateProducing
	n := wf.narrator()
	v := wf.arena.freeze()

	res := TickResult{
		Tick:    wf.tick,
		State:   StateProducing,
		Workers: make([]WorkerTick, 0, len(wf.workers)),
	}
	for _, w := range wf.workers {
		state, err := w.step(wf.arena, v, n)
		if err != nil {
			res.Faults = append(res.Faults, Fault{Worker: w.ID, Err: err, Detail: err.Error()})
			n.emit(KindWorker, w.Name, LevelFault, "%v", err)
		}
		res.Workers = append(res.Workers, WorkerTick{ID: w.ID, State: state, Energy: w.energy})
	}

	res.Completion = wf.product.CompletionFraction()
	res.Cost = wf.product.TotalCost()
	n.product(wf.product, LevelInfo, "I am %.2f%% complete", res.Completion*100)

	if wf.product.IsComplete() {
		arena, product, err := wf.build(wf.arena.gen+1, wf.product.Serial+1)
		if err != nil {
			res.CompletedCount = wf.totals.Completed
			n.emit(KindWorkflow, wf.plan.Name, LevelFault, "reset aborted: %v", err)
			return res, err
		}
		archived := wf.archive()
		n.emit(KindWorkflow, wf.plan.Name, LevelSuccess, "Workflow complete! Made a %s", archived.Name)
		wf.install(arena, product)
		wf.state = StateCompleted
		res.State = StateCompleted
		res.Archived = &archived
	}
	res.CompletedCount = wf.totals.Completed
	return res, nil
}

func (wf *Workflow) archive() ArchivedProduct {
	margin := wf.plan.EffectiveMargin()
	archived := ArchivedProduct{
		Name:       wf.product.Name,
		Serial:     wf.product.Serial,
		Generation: wf.arena.gen,
		Cost:       wf.product.TotalCost(),
		Profit:     wf.product.Profit(margin),
		Tick:       wf.tick,
	}
	wf.totals.Completed++
	wf.totals.Cost += archived.Cost
	wf.totals.Profit += archived.Profit
	wf.lastArchived = &archived
	return archived
}

// RunID identifies this workflow instance.
func (wf *Workflow) RunID() string { return wf.runID }

// Ticks returns how many ticks have run.
func (wf *Workflow) Ticks() uint64 { return wf.tick }

// State returns the controller state reported by the last tick.
func (wf *Workflow) State() State { return wf.state }

// Plan returns a copy of the assignment plan.
func (wf *Workflow) Plan() plan.Plan { return wf.plan.Clone() }

// Product returns the product currently in production.
func (wf *Workflow) Product() *Product { return wf.product }

// Arena returns the current generation's tasks.
func (wf *Workflow) Arena() *Arena { return wf.arena }

// Workers returns the workers in tick order.
func (wf *Workflow) Workers() []*Worker {
	out := make([]*Worker, len(wf.workers))
	copy(out, wf.workers)
	return out
}

// CompletedCount returns how many products have been finished.
func (wf *Workflow) CompletedCount() uint64 { return wf.totals.Completed }

// CompletionFraction reports the active product's completion.
func (wf *Workflow) CompletionFraction() float64 { return wf.product.CompletionFraction() }

// TotalCost reports the active product's cost.
func (wf *Workflow) TotalCost() float64 { return wf.product.TotalCost() }

// Totals returns the aggregate counters.
func (wf *Workflow) Totals() Totals { return wf.totals }

// LastArchived returns the most recently finished product, if any.
func (wf *Workflow) LastArchived() *ArchivedProduct {
	if wf.lastArchived == nil {
		return nil
	}
	archived := *wf.lastArchived
	return &archived
}
