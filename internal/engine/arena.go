package engine

import (
	"github.com/fentz26/fabrik/internal/plan"
)

// Arena stores the tasks of one production cycle. Every TaskID it hands out
// carries its generation, so ids from a discarded cycle never resolve.
type Arena struct {
	gen        uint32
	tasks      []*Task
	byTemplate map[string]TaskID
}

func buildArena(gen uint32, p plan.Plan) (*Arena, error) {
	if err := p.Validate(); err != nil {
		return nil, asConfiguration(err)
	}
	a := &Arena{
		gen:        gen,
		tasks:      make([]*Task, 0, len(p.Tasks)),
		byTemplate: make(map[string]TaskID, len(p.Tasks)),
	}
	for i, tmpl := range p.Tasks {
		if !(tmpl.Length > 0) {
			return nil, configf("task %s length must be positive, got %v", tmpl.ID, tmpl.Length)
		}
		id := TaskID{Gen: gen, Index: uint32(i)}
		a.byTemplate[tmpl.ID] = id
		a.tasks = append(a.tasks, &Task{
			ID:       id,
			Template: tmpl.ID,
			Name:     tmpl.DisplayName(),
			Length:   tmpl.Length,
		})
	}
	for i, tmpl := range p.Tasks {
		if len(tmpl.DependsOn) == 0 {
			continue
		}
		deps := make([]TaskID, 0, len(tmpl.DependsOn))
		for _, ref := range tmpl.DependsOn {
			dep, ok := a.byTemplate[ref]
			if !ok {
				return nil, configf("task %s depends on undeclared task %s", tmpl.ID, ref)
			}
			deps = append(deps, dep)
		}
		a.tasks[i].Dependencies = deps
	}
	return a, nil
}

// Generation returns the production cycle tag of this arena.
func (a *Arena) Generation() uint32 { return a.gen }

// Len returns the number of tasks.
func (a *Arena) Len() int { return len(a.tasks) }

// Task resolves an id. Ids from another generation are invariant violations.
func (a *Arena) Task(id TaskID) (*Task, error) {
	if id.Gen != a.gen {
		return nil, invariantf("task %s belongs to generation %d, current generation is %d", id, id.Gen, a.gen)
	}
	if int(id.Index) >= len(a.tasks) {
		return nil, invariantf("task %s is not part of generation %d", id, a.gen)
	}
	return a.tasks[id.Index], nil
}

// Lookup finds the task instantiated from a template.
func (a *Arena) Lookup(template string) (TaskID, bool) {
	id, ok := a.byTemplate[template]
	return id, ok
}

// IDs returns every task id in declaration order.
func (a *Arena) IDs() []TaskID {
	out := make([]TaskID, len(a.tasks))
	for i, t := range a.tasks {
		out[i] = t.ID
	}
	return out
}

// MayBeWorked reports whether every dependency of the task is complete right
// now. A task without dependencies is always eligible.
func (a *Arena) MayBeWorked(id TaskID) (bool, error) {
	t, err := a.Task(id)
	if err != nil {
		return false, err
	}
	for _, dep := range t.Dependencies {
		d, err := a.Task(dep)
		if err != nil {
			return false, err
		}
		if !d.IsComplete() {
			return false, nil
		}
	}
	return true, nil
}

// freeze captures which tasks are complete so every worker in a tick judges
// eligibility against the same state.
func (a *Arena) freeze() view {
	v := view{gen: a.gen, complete: make([]bool, len(a.tasks))}
	for i, t := range a.tasks {
		v.complete[i] = t.IsComplete()
	}
	return v
}

// view is the arena's completion state at the start of a tick.
type view struct {
	gen      uint32
	complete []bool
}

func (v view) mayBeWorked(t *Task) bool {
	for _, dep := range t.Dependencies {
		if dep.Gen != v.gen || int(dep.Index) >= len(v.complete) || !v.complete[dep.Index] {
			return false
		}
	}
	return true
}

func (v view) isComplete(id TaskID) bool {
	return id.Gen == v.gen && int(id.Index) < len(v.complete) && v.complete[id.Index]
}
