// Package plan declares the static assignment plan a production workflow is
// rebuilt from on every cycle.
package plan

// DefaultMargin is the naive profit rate applied to a product's cost.
const DefaultMargin = 0.2

// Plan declares one product, the task templates it requires and the workers
// that take them on.
type Plan struct {
	Name    string         `json:"name" yaml:"name" toml:"name"`
	Product string         `json:"product" yaml:"product" toml:"product"`
	// Margin is the profit rate. Nil means DefaultMargin; an explicit 0 means
	// no profit.
	Margin  *float64       `json:"margin,omitempty" yaml:"margin,omitempty" toml:"margin"`
	Tasks   []TaskTemplate `json:"tasks" yaml:"tasks" toml:"tasks"`
	Workers []WorkerSpec   `json:"workers" yaml:"workers" toml:"workers"`
}

// TaskTemplate is instantiated into a fresh task each production cycle.
type TaskTemplate struct {
	ID        string   `json:"id" yaml:"id" toml:"id"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Length    float64  `json:"length" yaml:"length" toml:"length"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
}

// DisplayName falls back to the template id.
func (t TaskTemplate) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// WorkerSpec declares a worker and, in work order, the templates it is
// assigned each cycle.
type WorkerSpec struct {
	ID           string   `json:"id" yaml:"id" toml:"id"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Wage         float64  `json:"wage" yaml:"wage" toml:"wage"`
	Productivity float64  `json:"productivity" yaml:"productivity" toml:"productivity"`
	Tasks        []string `json:"tasks,omitempty" yaml:"tasks,omitempty" toml:"tasks,omitempty"`
}

// DisplayName falls back to the worker id.
func (w WorkerSpec) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.ID
}

// EffectiveMargin returns the configured margin or DefaultMargin when unset.
func (p Plan) EffectiveMargin() float64 {
	if p.Margin == nil {
		return DefaultMargin
	}
	return *p.Margin
}

// MarginOf returns a margin value for Plan.Margin.
func MarginOf(v float64) *float64 {
	return &v
}

// Template looks up a task template by id.
func (p Plan) Template(id string) (TaskTemplate, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskTemplate{}, false
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	clone := Plan{
		Name:    p.Name,
		Product: p.Product,
	}
	if p.Margin != nil {
		clone.Margin = MarginOf(*p.Margin)
	}
	if len(p.Tasks) > 0 {
		clone.Tasks = make([]TaskTemplate, len(p.Tasks))
		for i, t := range p.Tasks {
			t.DependsOn = cloneStrings(t.DependsOn)
			clone.Tasks[i] = t
		}
	}
	if len(p.Workers) > 0 {
		clone.Workers = make([]WorkerSpec, len(p.Workers))
		for i, w := range p.Workers {
			w.Tasks = cloneStrings(w.Tasks)
			clone.Workers[i] = w
		}
	}
	return clone
}

// Default returns the bottle cork workflow: wood has to be fetched before it
// can be punched into a cork or shelved.
func Default() Plan {
	return Plan{
		Name:    "make-bottle-corks",
		Product: "Bottle cork",
		Margin:  MarginOf(DefaultMargin),
		Tasks: []TaskTemplate{
			{ID: "get-wood", Name: "Get wood", Length: 2},
			{ID: "punch-cork", Name: "Punch cork", Length: 0.5, DependsOn: []string{"get-wood"}},
			{ID: "shelve-cork", Name: "Put cork on shelf", Length: 0.2, DependsOn: []string{"get-wood"}},
		},
		Workers: []WorkerSpec{
			{ID: "stefan", Name: "Stefan", Wage: 100, Productivity: 1, Tasks: []string{"get-wood", "shelve-cork"}},
			{ID: "louise", Name: "Louise", Wage: 100, Productivity: 1, Tasks: []string{"punch-cork"}},
		},
	}
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
