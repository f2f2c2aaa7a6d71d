package feature

import (
	"errors"
	"testing"

	"github.com/Faultbox/tilemesh/internal/config"
)

var (
	always = PredicateFunc(func(map[string]any) bool { return true })
	never  = PredicateFunc(func(map[string]any) bool { return false })
)

func mustFilter(t *testing.T, c Combiner, preds ...Predicate) *Filter {
	t.Helper()
	f, err := NewFilter(c, preds...)
	if err != nil {
		t.Fatalf("NewFilter(%v) failed: %v", c, err)
	}
	return f
}

func TestFilterLaws(t *testing.T) {
	props := []map[string]any{
		nil,
		{"type": "office", "height": 40.0},
		{"type": "parking"},
	}

	allEmpty := mustFilter(t, AllOf)
	anyNever := mustFilter(t, AnyOf, never)
	for _, p := range props {
		if !allEmpty.Evaluate(p) {
			t.Errorf("AllOf() rejected %v", p)
		}
		if anyNever.Evaluate(p) {
			t.Errorf("AnyOf(never) accepted %v", p)
		}
	}

	sets := [][]Predicate{
		nil,
		{never},
		{always},
		{never, always},
		{Contains{Key: "type", Values: []string{"parking"}}},
		{Greater{Key: "height", Min: 30}, Contains{Key: "type", Values: []string{"garage"}}},
	}
	for i, set := range sets {
		anyF := mustFilter(t, AnyOf, set...)
		noneF := mustFilter(t, NoneOf, set...)
		for _, p := range props {
			if noneF.Evaluate(p) == anyF.Evaluate(p) {
				t.Errorf("set %d: NoneOf(%v) == AnyOf for %v", i, noneF.Evaluate(p), p)
			}
		}
	}
}

func TestFilterShortCircuit(t *testing.T) {
	calls := 0
	counting := PredicateFunc(func(map[string]any) bool { calls++; return true })

	mustFilter(t, AnyOf, always, counting).Evaluate(nil)
	mustFilter(t, AllOf, never, counting).Evaluate(nil)
	if calls != 0 {
		t.Errorf("predicate evaluated %d times after the result was decided", calls)
	}
}

func TestFilterAccept(t *testing.T) {
	// Without predicates everything is built whatever the combiner.
	for _, c := range []Combiner{AnyOf, AllOf, NoneOf} {
		if !mustFilter(t, c).Accept(map[string]any{"type": "x"}) {
			t.Errorf("%v with no predicates rejected a feature", c)
		}
	}

	f := mustFilter(t, NoneOf, Contains{Key: "type", Values: []string{"parking", "garage"}})
	if f.Accept(map[string]any{"type": "Parking"}) {
		t.Error("NoneOf(parking) accepted a parking lot")
	}
	if !f.Accept(map[string]any{"type": "office"}) {
		t.Error("NoneOf(parking) rejected an office")
	}
}

func TestPredicates(t *testing.T) {
	props := map[string]any{
		"type":   "Office",
		"height": 42.0,
		"levels": int64(10),
		"min":    "3.5",
		"flag":   true,
	}

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"contains case-insensitive", Contains{Key: "type", Values: []string{"office"}}, true},
		{"contains miss", Contains{Key: "type", Values: []string{"retail"}}, false},
		{"contains bool", Contains{Key: "flag", Values: []string{"true"}}, true},
		{"contains missing key", Contains{Key: "name", Values: []string{""}}, false},
		{"equals int", Equals{Key: "levels", Value: 10}, true},
		{"equals miss", Equals{Key: "height", Value: 41}, false},
		{"greater", Greater{Key: "height", Min: 40}, true},
		{"greater boundary", Greater{Key: "height", Min: 42}, false},
		{"less string number", Less{Key: "min", Max: 4}, true},
		{"less non-number", Less{Key: "type", Max: 100}, false},
		{"in range inclusive", InRange{Key: "height", Min: 42, Max: 50}, true},
		{"in range outside", InRange{Key: "levels", Min: 11, Max: 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Match(props); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCombiner(t *testing.T) {
	tests := []struct {
		in   string
		want Combiner
	}{
		{"any", AnyOf},
		{"ALL", AllOf},
		{" none ", NoneOf},
	}
	for _, tc := range tests {
		got, err := ParseCombiner(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseCombiner(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}

	if _, err := ParseCombiner("some"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ParseCombiner(some) error = %v, want ErrConfiguration", err)
	}
	if _, err := NewFilter(Combiner(9)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("NewFilter(9) error = %v, want ErrConfiguration", err)
	}
}

func TestFilterFromConfig(t *testing.T) {
	cfg := config.FilterConfig{
		Combiner: "all",
		Rules: []config.FilterRule{
			{Key: "type", Op: "contains", Values: []string{"office", "retail"}},
			{Key: "height", Op: "in_range", Min: 10, Max: 100},
		},
	}
	f, err := FilterFromConfig(cfg)
	if err != nil {
		t.Fatalf("FilterFromConfig failed: %v", err)
	}
	if f.Len() != 2 || f.Combiner() != AllOf {
		t.Errorf("got %d predicates with %v", f.Len(), f.Combiner())
	}
	if !f.Accept(map[string]any{"type": "retail", "height": 20.0}) {
		t.Error("expected retail at 20m to pass")
	}
	if f.Accept(map[string]any{"type": "retail", "height": 200.0}) {
		t.Error("expected retail at 200m to fail")
	}

	bad := []config.FilterConfig{
		{Combiner: "most"},
		{Combiner: "any", Rules: []config.FilterRule{{Key: "a", Op: "like"}}},
		{Combiner: "any", Rules: []config.FilterRule{{Op: "equals"}}},
		{Combiner: "any", Rules: []config.FilterRule{{Key: "h", Op: "in_range", Min: 5, Max: 1}}},
	}
	for i, c := range bad {
		if _, err := FilterFromConfig(c); !errors.Is(err, ErrConfiguration) {
			t.Errorf("case %d: error = %v, want ErrConfiguration", i, err)
		}
	}
}

func TestExtrudable(t *testing.T) {
	tests := []struct {
		props map[string]any
		want  bool
	}{
		{nil, true},
		{map[string]any{"extrude": true}, true},
		{map[string]any{"extrude": false}, false},
		{map[string]any{"extrude": "false"}, false},
		{map[string]any{"extrude": "maybe"}, true},
	}
	for _, tc := range tests {
		if got := Extrudable(tc.props); got != tc.want {
			t.Errorf("Extrudable(%v) = %v, want %v", tc.props, got, tc.want)
		}
	}
}
