package plan

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultPlanIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Expected default plan to validate, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Plan)
		want    error
		message string
	}{
		{"missing name", func(p *Plan) { p.Name = " " }, ErrInvalidPlan, "name is required"},
		{"negative margin", func(p *Plan) { p.Margin = MarginOf(-1) }, ErrInvalidPlan, "margin"},
		{"NaN margin", func(p *Plan) { p.Margin = MarginOf(math.NaN()) }, ErrInvalidPlan, "margin"},
		{"infinite margin", func(p *Plan) { p.Margin = MarginOf(math.Inf(1)) }, ErrInvalidPlan, "margin"},
		{"NaN length", func(p *Plan) { p.Tasks[0].Length = math.NaN() }, ErrInvalidPlan, "length must be positive"},
		{"infinite length", func(p *Plan) { p.Tasks[0].Length = math.Inf(1) }, ErrInvalidPlan, "length must be positive"},
		{"NaN wage", func(p *Plan) { p.Workers[0].Wage = math.NaN() }, ErrInvalidPlan, "wage"},
		{"infinite wage", func(p *Plan) { p.Workers[0].Wage = math.Inf(1) }, ErrInvalidPlan, "wage"},
		{"NaN productivity", func(p *Plan) { p.Workers[0].Productivity = math.NaN() }, ErrInvalidPlan, "productivity"},
		{"duplicate task", func(p *Plan) { p.Tasks[1].ID = "get-wood" }, ErrInvalidPlan, "duplicate task id"},
		{"zero length", func(p *Plan) { p.Tasks[0].Length = 0 }, ErrInvalidPlan, "length must be positive"},
		{"negative length", func(p *Plan) { p.Tasks[0].Length = -2 }, ErrInvalidPlan, "length must be positive"},
		{"self dependency", func(p *Plan) { p.Tasks[0].DependsOn = []string{"get-wood"} }, ErrInvalidPlan, "depends on itself"},
		{"unknown dependency", func(p *Plan) { p.Tasks[1].DependsOn = []string{"sand"} }, ErrInvalidPlan, "unknown task sand"},
		{"duplicate dependency", func(p *Plan) {
			p.Tasks[1].DependsOn = []string{"get-wood", "get-wood"}
		}, ErrInvalidPlan, "duplicate dependency"},
		{"duplicate worker", func(p *Plan) { p.Workers[1].ID = "stefan" }, ErrInvalidPlan, "duplicate worker"},
		{"negative wage", func(p *Plan) { p.Workers[0].Wage = -5 }, ErrInvalidPlan, "wage"},
		{"productivity above one", func(p *Plan) { p.Workers[0].Productivity = 1.5 }, ErrInvalidPlan, "productivity"},
		{"unknown assignment", func(p *Plan) { p.Workers[0].Tasks = []string{"sand"} }, ErrInvalidPlan, "unknown task sand"},
		{"double assignment", func(p *Plan) {
			p.Workers[1].Tasks = []string{"punch-cork", "punch-cork"}
		}, ErrInvalidPlan, "twice"},
		{"unassigned task", func(p *Plan) { p.Workers[1].Tasks = nil }, ErrInvalidPlan, "not assigned"},
		{"cycle", func(p *Plan) { p.Tasks[0].DependsOn = []string{"shelve-cork"} }, ErrCycle, "get-wood -> shelve-cork -> get-wood"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error to mention %q, got %q", tt.message, err.Error())
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	p := Plan{
		Name: "assembly",
		Tasks: []TaskTemplate{
			{ID: "paint", Length: 1, DependsOn: []string{"frame", "wheels"}},
			{ID: "wheels", Length: 1},
			{ID: "frame", Length: 1},
			{ID: "ship", Length: 1, DependsOn: []string{"paint"}},
		},
		Workers: []WorkerSpec{{ID: "w", Productivity: 1, Tasks: []string{"paint", "wheels", "frame", "ship"}}},
	}

	want := []string{"wheels", "frame", "paint", "ship"}
	for i := 0; i < 5; i++ {
		got, err := p.Order()
		if err != nil {
			t.Fatalf("Order failed: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := Default()
	c := p.Clone()
	c.Tasks[1].DependsOn[0] = "changed"
	c.Workers[0].Tasks[0] = "changed"

	if p.Tasks[1].DependsOn[0] != "get-wood" {
		t.Errorf("Expected original dependency untouched, got %s", p.Tasks[1].DependsOn[0])
	}
	if p.Workers[0].Tasks[0] != "get-wood" {
		t.Errorf("Expected original assignment untouched, got %s", p.Workers[0].Tasks[0])
	}
}

func TestEffectiveMargin(t *testing.T) {
	p := Default()
	if p.EffectiveMargin() != DefaultMargin {
		t.Errorf("Expected default margin %v, got %v", DefaultMargin, p.EffectiveMargin())
	}
	p.Margin = MarginOf(0.35)
	if p.EffectiveMargin() != 0.35 {
		t.Errorf("Expected margin 0.35, got %v", p.EffectiveMargin())
	}
	p.Margin = MarginOf(0)
	if p.EffectiveMargin() != 0 {
		t.Errorf("Expected explicit zero margin kept, got %v", p.EffectiveMargin())
	}
	p.Margin = nil
	if p.EffectiveMargin() != DefaultMargin {
		t.Errorf("Expected unset margin to use default, got %v", p.EffectiveMargin())
	}
}

func TestCloneCopiesMargin(t *testing.T) {
	p := Default()
	clone := p.Clone()
	*clone.Margin = 0.9
	if p.EffectiveMargin() != DefaultMargin {
		t.Errorf("Expected original margin untouched, got %v", p.EffectiveMargin())
	}
}
