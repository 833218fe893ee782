package engine

// Snapshot is a read-only copy of the workflow for reporting.
type Snapshot struct {
	RunID        string           `json:"run_id"`
	Plan         string           `json:"plan"`
	Tick         uint64           `json:"tick"`
	State        State            `json:"state"`
	Product      ProductSnapshot  `json:"product"`
	Workers      []WorkerSnapshot `json:"workers"`
	Totals       Totals           `json:"totals"`
	LastArchived *ArchivedProduct `json:"last_archived,omitempty"`
}

// ProductSnapshot describes the active product.
type ProductSnapshot struct {
	Name       string         `json:"name"`
	Serial     int            `json:"serial"`
	Generation uint32         `json:"generation"`
	Completion float64        `json:"completion"`
	Cost       float64        `json:"cost"`
	Profit     float64        `json:"profit"`
	Tasks      []TaskSnapshot `json:"tasks"`
}

// TaskSnapshot describes one task of the active product.
type TaskSnapshot struct {
	ID         string   `json:"id"`
	Template   string   `json:"template"`
	Name       string   `json:"name"`
	Length     float64  `json:"length"`
	Completion float64  `json:"completion"`
	Complete   bool     `json:"complete"`
	Eligible   bool     `json:"eligible"`
	DependsOn  []string `json:"depends_on,omitempty"`
}

// WorkerSnapshot describes one worker.
type WorkerSnapshot struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Wage         float64     `json:"wage"`
	Productivity float64     `json:"productivity"`
	Energy       float64     `json:"energy"`
	Efficiency   float64     `json:"efficiency"`
	RestTimer    int         `json:"rest_timer"`
	State        WorkerState `json:"state"`
	CurrentTask  string      `json:"current_task,omitempty"`
	Queue        []string    `json:"queue,omitempty"`
	WorkedTicks  uint64      `json:"worked_ticks"`
}

// Snapshot copies the reportable state. It never mutates the workflow.
func (wf *Workflow) Snapshot() Snapshot {
	margin := wf.plan.EffectiveMargin()
	snap := Snapshot{
		RunID:        wf.runID,
		Plan:         wf.plan.Name,
		Tick:         wf.tick,
		State:        wf.state,
		Totals:       wf.totals,
		LastArchived: wf.LastArchived(),
		Product: ProductSnapshot{
			Name:       wf.product.Name,
			Serial:     wf.product.Serial,
			Generation: wf.arena.gen,
			Completion: wf.product.CompletionFraction(),
			Cost:       wf.product.TotalCost(),
			Profit:     wf.product.Profit(margin),
			Tasks:      make([]TaskSnapshot, 0, wf.arena.Len()),
		},
		Workers: make([]WorkerSnapshot, 0, len(wf.workers)),
	}
	for _, t := range wf.arena.tasks {
		eligible, _ := wf.arena.MayBeWorked(t.ID)
		ts := TaskSnapshot{
			ID:         t.ID.String(),
			Template:   t.Template,
			Name:       t.Name,
			Length:     t.Length,
			Completion: t.Completion(),
			Complete:   t.IsComplete(),
			Eligible:   eligible,
		}
		for _, dep := range t.Dependencies {
			if d, err := wf.arena.Task(dep); err == nil {
				ts.DependsOn = append(ts.DependsOn, d.Template)
			}
		}
		snap.Product.Tasks = append(snap.Product.Tasks, ts)
	}
	for _, w := range wf.workers {
		ws := WorkerSnapshot{
			ID:           w.ID,
			Name:         w.Name,
			Wage:         w.Wage,
			Productivity: w.Productivity,
			Energy:       w.energy,
			Efficiency:   w.Efficiency(),
			RestTimer:    w.restTimer,
			State:        w.state,
			WorkedTicks:  w.workedTicks,
		}
		if id, ok := w.CurrentTask(); ok {
			if t, err := wf.arena.Task(id); err == nil {
				ws.CurrentTask = t.Template
			}
		}
		for _, id := range w.Queue() {
			if t, err := wf.arena.Task(id); err == nil {
				ws.Queue = append(ws.Queue, t.Template)
			}
		}
		snap.Workers = append(snap.Workers, ws)
	}
	return snap
}
