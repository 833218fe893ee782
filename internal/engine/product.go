package engine

// Product is assembled from an ordered, immutable set of required tasks.
type Product struct {
	Name   string
	Serial int

	required []TaskID
	arena    *Arena
	cost     float64
}

func newProduct(name string, serial int, arena *Arena) *Product {
	p := &Product{
		Name:     name,
		Serial:   serial,
		required: arena.IDs(),
		arena:    arena,
	}
	for _, t := range arena.tasks {
		p.cost += t.Length
	}
	return p
}

// Required returns the required task ids in declaration order.
func (p *Product) Required() []TaskID {
	out := make([]TaskID, len(p.required))
	copy(out, p.required)
	return out
}

// TotalCost is the sum of the required tasks' lengths.
func (p *Product) TotalCost() float64 {
	return p.cost
}

// Profit applies a naive margin to the cost.
func (p *Product) Profit(margin float64) float64 {
	return p.cost * margin
}

// CompletionFraction returns completed/total. A product with no required
// tasks is complete.
func (p *Product) CompletionFraction() float64 {
	if len(p.required) == 0 {
		return 1
	}
	completed := 0
	for _, id := range p.required {
		t, err := p.arena.Task(id)
		if err != nil {
			// Unreachable: required ids and the arena come from the same
			// build. A missing task stays incomplete so the product is never
			// archived on it.
			continue
		}
		if t.IsComplete() {
			completed++
		}
	}
	return float64(completed) / float64(len(p.required))
}

// IsComplete reports whether every required task is done.
func (p *Product) IsComplete() bool {
	return p.CompletionFraction() >= 1
}
