package inference

import (
	"fmt"
	"strings"
)

// Implication combines a degree a with a membership b.
type Implication int

const (
	Mamdani Implication = iota // min(a, b)
	Larsen                     // a * b
)

// Aggregation combines the outputs of several rules.
type Aggregation int

const (
	Max    Aggregation = iota // max
	Sum                       // min(1, sum)
	ProbOr                    // a + b - a*b, capped at 1
)

// Composition combines a fuzzified input with a fuzzy relation.
type Composition int

const (
	MaxMin Composition = iota
	MaxProduct
)

var (
	implicationNames = []string{Mamdani: "mamdani", Larsen: "larsen"}
	aggregationNames = []string{Max: "max", Sum: "sum", ProbOr: "probor"}
	compositionNames = []string{MaxMin: "maxmin", MaxProduct: "maxprod"}
)

func enumString(names []string, kind string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%s(%d)", kind, i)
}

func enumParse(names []string, kind, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownOperator, kind, s)
}

func (i Implication) String() string { return enumString(implicationNames, "Implication", int(i)) }
func (a Aggregation) String() string { return enumString(aggregationNames, "Aggregation", int(a)) }
func (c Composition) String() string { return enumString(compositionNames, "Composition", int(c)) }

func ParseImplication(s string) (Implication, error) {
	i, err := enumParse(implicationNames, "implication", s)
	return Implication(i), err
}

func ParseAggregation(s string) (Aggregation, error) {
	i, err := enumParse(aggregationNames, "aggregation", s)
	return Aggregation(i), err
}

func ParseComposition(s string) (Composition, error) {
	i, err := enumParse(compositionNames, "composition", s)
	return Composition(i), err
}

func (i Implication) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (a Aggregation) MarshalText() ([]byte, error) { return []byte(a.String()), nil }
func (c Composition) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (i *Implication) UnmarshalText(b []byte) (err error) {
	*i, err = ParseImplication(string(b))
	return
}

func (a *Aggregation) UnmarshalText(b []byte) (err error) {
	*a, err = ParseAggregation(string(b))
	return
}

func (c *Composition) UnmarshalText(b []byte) (err error) {
	*c, err = ParseComposition(string(b))
	return
}

func (i Implication) Apply(a, b float64) float64 {
	switch i {
	case Mamdani:
		return min(a, b)
	case Larsen:
		return a * b
	default:
		panic("unexpected implication")
	}
}

// ApplyCurve returns Apply(alpha, m) for every m in mu.
func (i Implication) ApplyCurve(alpha float64, mu []float64) []float64 {
	out := make([]float64, len(mu))
	for k, m := range mu {
		out[k] = i.Apply(alpha, m)
	}
	return out
}

func (c Composition) combine(a, b float64) float64 {
	switch c {
	case MaxMin:
		return min(a, b)
	case MaxProduct:
		return a * b
	default:
		panic("unexpected composition")
	}
}

func (a Aggregation) pair(x, y float64) float64 {
	switch a {
	case Max:
		return max(x, y)
	case Sum:
		return min(1.0, x+y)
	case ProbOr:
		return min(1.0, x+y-x*y)
	default:
		panic("unexpected aggregation")
	}
}

// Aggregate folds values with the aggregation operator. An empty sequence
// aggregates to 0. Sum and ProbOr never exceed 1.
func Aggregate(a Aggregation, values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	switch a {
	case Max:
		m := values[0]
		for _, v := range values[1:] {
			m = max(m, v)
		}
		return m
	case Sum:
		var s float64
		for _, v := range values {
			s += v
		}
		return min(1.0, s)
	case ProbOr:
		r := values[0]
		for _, v := range values[1:] {
			r = r + v - r*v
		}
		return min(1.0, r)
	default:
		panic("unexpected aggregation")
	}
}

// AggregateInto aggregates curve into acc pointwise.
func AggregateInto(a Aggregation, acc, curve []float64) {
	if len(acc) != len(curve) {
		panic("unexpected number of values")
	}
	for k := range acc {
		acc[k] = a.pair(acc[k], curve[k])
	}
}
