package fuzzy

import (
	"fmt"
	"math"
	"slices"

	"example.com/fuzzy-inference/base/floats"
)

// Variable is a linguistic variable: a numeric domain [Min, Max] and the
// fuzzy sets (terms) defined over it. Term parameters may lie outside the
// domain.
type Variable struct {
	Name  string
	Min   float64
	Max   float64
	Terms map[string]*Set
}

func NewVariable(name string, lo, hi float64) (*Variable, error) {
	if name == "" {
		return nil, NewConfigError("variable", ErrEmptyName)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || !(lo < hi) {
		return nil, ConfigErrorf(fmt.Sprintf("variable %q", name), ErrEmptyRange, "[%v, %v]", lo, hi)
	}
	return &Variable{Name: name, Min: lo, Max: hi, Terms: make(map[string]*Set)}, nil
}

func (v *Variable) AddTerm(name string, f MembershipFunc) error {
	item := fmt.Sprintf("variable %q", v.Name)
	if name == "" {
		return NewConfigError(item, fmt.Errorf("term: %w", ErrEmptyName))
	}
	if _, ok := v.Terms[name]; ok {
		return ConfigErrorf(item, ErrDuplicateTerm, "%q", name)
	}
	v.Terms[name] = &Set{Name: name, Func: f}
	return nil
}

func (v *Variable) Term(name string) (*Set, bool) {
	s, ok := v.Terms[name]
	return s, ok
}

// Membership returns the degree of membership of x in the named term, or 0
// if the variable has no such term.
func (v *Variable) Membership(term string, x float64) float64 {
	s, ok := v.Terms[term]
	if !ok {
		return 0.0
	}
	return s.Membership(x)
}

// Fuzzify returns the degree of membership of x in every term.
func (v *Variable) Fuzzify(x float64) map[string]float64 {
	m := make(map[string]float64, len(v.Terms))
	for name, s := range v.Terms {
		m[name] = s.Membership(x)
	}
	return m
}

func (v *Variable) TermNames() []string {
	names := make([]string, 0, len(v.Terms))
	for name := range v.Terms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (v *Variable) Span() float64 {
	return v.Max - v.Min
}

// Grid returns n evenly spaced points over [Min, Max].
func (v *Variable) Grid(n int) []float64 {
	return floats.Linspace(v.Min, v.Max, n)
}
