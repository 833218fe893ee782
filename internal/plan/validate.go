package plan

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrInvalidPlan = errors.New("invalid plan")
	ErrCycle       = errors.New("dependency cycle")
)

// ValidationError wraps a deterministic plan validation failure.
type ValidationError struct {
	Kind error
	Msg  string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &ValidationError{Kind: ErrInvalidPlan, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &ValidationError{Kind: ErrCycle, Msg: msg}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate ensures the plan is self-consistent and its dependency graph is
// acyclic.
func (p Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalidf("name is required")
	}
	if p.Margin != nil && !(*p.Margin >= 0 && finite(*p.Margin)) {
		return invalidf("plan %s: margin must be a finite number >= 0, got %v", p.Name, *p.Margin)
	}

	templates := make(map[string]struct{}, len(p.Tasks))
	for idx, t := range p.Tasks {
		if t.ID == "" {
			return invalidf("plan %s task[%d]: id is required", p.Name, idx)
		}
		if _, dup := templates[t.ID]; dup {
			return invalidf("plan %s: duplicate task id %s", p.Name, t.ID)
		}
		if !(t.Length > 0 && finite(t.Length)) {
			return invalidf("plan %s: task %s length must be positive, got %v", p.Name, t.ID, t.Length)
		}
		templates[t.ID] = struct{}{}
	}
	for _, t := range p.Tasks {
		deps := append([]string{}, t.DependsOn...)
		sort.Strings(deps)
		for i, dep := range deps {
			if dep == t.ID {
				return invalidf("plan %s: task %s depends on itself", p.Name, t.ID)
			}
			if _, ok := templates[dep]; !ok {
				return invalidf("plan %s: task %s depends on unknown task %s", p.Name, t.ID, dep)
			}
			if i > 0 && deps[i-1] == dep {
				return invalidf("plan %s: task %s has duplicate dependency on %s", p.Name, t.ID, dep)
			}
		}
	}

	workers := make(map[string]struct{}, len(p.Workers))
	assigned := make(map[string]struct{}, len(p.Tasks))
	for idx, w := range p.Workers {
		if w.ID == "" {
			return invalidf("plan %s worker[%d]: id is required", p.Name, idx)
		}
		if _, dup := workers[w.ID]; dup {
			return invalidf("plan %s: duplicate worker id %s", p.Name, w.ID)
		}
		workers[w.ID] = struct{}{}
		if !(w.Wage >= 0 && finite(w.Wage)) {
			return invalidf("plan %s: worker %s wage must be a finite number >= 0, got %v", p.Name, w.ID, w.Wage)
		}
		if !(w.Productivity >= 0 && w.Productivity <= 1) {
			return invalidf("plan %s: worker %s productivity must be within [0,1], got %v", p.Name, w.ID, w.Productivity)
		}
		seen := map[string]struct{}{}
		for _, ref := range w.Tasks {
			if _, ok := templates[ref]; !ok {
				return invalidf("plan %s: worker %s assigned unknown task %s", p.Name, w.ID, ref)
			}
			if _, dup := seen[ref]; dup {
				return invalidf("plan %s: worker %s assigned task %s twice", p.Name, w.ID, ref)
			}
			seen[ref] = struct{}{}
			assigned[ref] = struct{}{}
		}
	}
	for _, t := range p.Tasks {
		if _, ok := assigned[t.ID]; !ok {
			return invalidf("plan %s: task %s is not assigned to any worker", p.Name, t.ID)
		}
	}

	if _, err := p.Order(); err != nil {
		return err
	}
	return nil
}

// Order returns the task template ids in a deterministic topological order:
// among ready templates the earliest declared comes first.
func (p Plan) Order() ([]string, error) {
	g, err := newGraph(p)
	if err != nil {
		return nil, err
	}
	order := g.topoOrder()
	if len(order) != len(g.ids) {
		return nil, cycleError(g.findCycle())
	}
	out := make([]string, len(order))
	for i, idx := range order {
		out[i] = g.ids[idx]
	}
	return out, nil
}

// graph indexes templates by declaration order. outgoing edges point from a
// dependency to its dependents.
type graph struct {
	ids      []string
	indeg    []int
	outgoing [][]int
}

func newGraph(p Plan) (*graph, error) {
	index := make(map[string]int, len(p.Tasks))
	g := &graph{
		ids:      make([]string, len(p.Tasks)),
		indeg:    make([]int, len(p.Tasks)),
		outgoing: make([][]int, len(p.Tasks)),
	}
	for i, t := range p.Tasks {
		index[t.ID] = i
		g.ids[i] = t.ID
	}
	for i, t := range p.Tasks {
		for _, dep := range t.DependsOn {
			d, ok := index[dep]
			if !ok {
				return nil, invalidf("plan %s: task %s depends on unknown task %s", p.Name, t.ID, dep)
			}
			g.outgoing[d] = append(g.outgoing[d], i)
			g.indeg[i]++
		}
	}
	for i := range g.outgoing {
		sort.Ints(g.outgoing[i])
	}
	return g, nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm with a min-heap ready queue so the result
// only depends on declaration order.
func (g *graph) topoOrder() []int {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle extracts a single cycle witness with a DFS in declaration order.
func (g *graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.ids))
	parent := make([]int, len(g.ids))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes the cycle v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.ids {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.ids[cycle[i]])
	}
	return out
}
