package feature

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Faultbox/tilemesh/internal/config"
)

// ErrConfiguration is returned when a filter is set up with an unknown
// combiner or predicate.
var ErrConfiguration = errors.New("invalid filter configuration")

// Combiner joins predicate results.
type Combiner int

const (
	AnyOf Combiner = iota
	AllOf
	NoneOf
)

func (c Combiner) String() string {
	switch c {
	case AnyOf:
		return "any"
	case AllOf:
		return "all"
	case NoneOf:
		return "none"
	default:
		return fmt.Sprintf("Combiner(%d)", int(c))
	}
}

// ParseCombiner reads "any", "all" or "none".
func ParseCombiner(s string) (Combiner, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any":
		return AnyOf, nil
	case "all":
		return AllOf, nil
	case "none":
		return NoneOf, nil
	}
	return 0, fmt.Errorf("%w: unknown combiner %q", ErrConfiguration, s)
}

// Predicate tests feature properties. Implementations must not modify props.
type Predicate interface {
	Match(props map[string]any) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(props map[string]any) bool

// Match calls f.
func (f PredicateFunc) Match(props map[string]any) bool { return f(props) }

// Contains matches when the property, as lower-case text, is one of Values.
type Contains struct {
	Key    string
	Values []string
}

func (p Contains) Match(props map[string]any) bool {
	v, ok := text(props, p.Key)
	if !ok {
		return false
	}
	return slices.ContainsFunc(p.Values, func(want string) bool {
		return strings.EqualFold(want, v)
	})
}

// Equals matches a numeric property equal to Value.
type Equals struct {
	Key   string
	Value float64
}

func (p Equals) Match(props map[string]any) bool {
	v, ok := Number(props, p.Key)
	return ok && v == p.Value
}

// Greater matches a numeric property above Min.
type Greater struct {
	Key string
	Min float64
}

func (p Greater) Match(props map[string]any) bool {
	v, ok := Number(props, p.Key)
	return ok && v > p.Min
}

// Less matches a numeric property below Max.
type Less struct {
	Key string
	Max float64
}

func (p Less) Match(props map[string]any) bool {
	v, ok := Number(props, p.Key)
	return ok && v < p.Max
}

// InRange matches a numeric property in [Min, Max].
type InRange struct {
	Key      string
	Min, Max float64
}

func (p InRange) Match(props map[string]any) bool {
	v, ok := Number(props, p.Key)
	return ok && v >= p.Min && v <= p.Max
}

// PredicateFromConfig builds the predicate a config rule describes.
func PredicateFromConfig(r config.FilterRule) (Predicate, error) {
	if r.Key == "" {
		return nil, fmt.Errorf("%w: rule without key", ErrConfiguration)
	}
	switch strings.ToLower(r.Op) {
	case "contains":
		return Contains{Key: r.Key, Values: r.Values}, nil
	case "equals":
		return Equals{Key: r.Key, Value: r.Min}, nil
	case "greater":
		return Greater{Key: r.Key, Min: r.Min}, nil
	case "less":
		return Less{Key: r.Key, Max: r.Max}, nil
	case "in_range":
		if r.Min > r.Max {
			return nil, fmt.Errorf("%w: range %v > %v on %q", ErrConfiguration, r.Min, r.Max, r.Key)
		}
		return InRange{Key: r.Key, Min: r.Min, Max: r.Max}, nil
	}
	return nil, fmt.Errorf("%w: unknown op %q", ErrConfiguration, r.Op)
}

// Filter combines predicates with a Combiner.
type Filter struct {
	combiner Combiner
	preds    []Predicate
}

// NewFilter returns a filter, rejecting an unknown combiner.
func NewFilter(c Combiner, preds ...Predicate) (*Filter, error) {
	if c < AnyOf || c > NoneOf {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, c)
	}
	return &Filter{combiner: c, preds: slices.Clone(preds)}, nil
}

// FilterFromConfig builds a filter from its config section.
func FilterFromConfig(cfg config.FilterConfig) (*Filter, error) {
	c, err := ParseCombiner(cfg.Combiner)
	if err != nil {
		return nil, err
	}
	preds := make([]Predicate, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		p, err := PredicateFromConfig(r)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return NewFilter(c, preds...)
}

// Combiner returns the filter's combiner.
func (f *Filter) Combiner() Combiner { return f.combiner }

// Len returns the number of predicates.
func (f *Filter) Len() int { return len(f.preds) }

// Evaluate applies the combiner: AllOf of nothing accepts, AnyOf of nothing
// rejects and NoneOf is the negation of AnyOf. Evaluation stops at the first
// deciding predicate.
func (f *Filter) Evaluate(props map[string]any) bool {
	switch f.combiner {
	case AllOf:
		for _, p := range f.preds {
			if !p.Match(props) {
				return false
			}
		}
		return true
	case NoneOf:
		return !f.any(props)
	default:
		return f.any(props)
	}
}

func (f *Filter) any(props map[string]any) bool {
	for _, p := range f.preds {
		if p.Match(props) {
			return true
		}
	}
	return false
}

// Accept decides whether a feature is built. A filter with no predicates
// accepts everything whatever its combiner.
func (f *Filter) Accept(props map[string]any) bool {
	if len(f.preds) == 0 {
		return true
	}
	return f.Evaluate(props)
}
