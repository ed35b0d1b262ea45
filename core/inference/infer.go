package inference

import (
	"example.com/fuzzy-inference/core/config"
)

// Mechanism selects how the output fuzzy set is derived from the rules.
type Mechanism int

const (
	TruthLevel Mechanism = iota
	CompositionMaxMin
	CompositionMaxProduct
)

var mechanismNames = []string{TruthLevel: "truth", CompositionMaxMin: "maxmin", CompositionMaxProduct: "maxprod"}

func (m Mechanism) String() string { return enumString(mechanismNames, "Mechanism", int(m)) }

func ParseMechanism(s string) (Mechanism, error) {
	i, err := enumParse(mechanismNames, "mechanism", s)
	return Mechanism(i), err
}

func (m Mechanism) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mechanism) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMechanism(string(b))
	return
}

func (c Composition) mechanism() Mechanism {
	switch c {
	case MaxMin:
		return CompositionMaxMin
	case MaxProduct:
		return CompositionMaxProduct
	default:
		panic("unexpected composition")
	}
}

// Mechanisms lists all mechanisms in declaration order.
var Mechanisms = []Mechanism{TruthLevel, CompositionMaxMin, CompositionMaxProduct}

// Implications lists all implications in declaration order.
var Implications = []Implication{Mamdani, Larsen}

// Query describes one inference. The zero value of each operator field is
// the conventional default: truth levels, Mamdani, max, centroid. A zero
// Resolution means config.DefaultResolution.
type Query struct {
	Output      string
	Mechanism   Mechanism
	Implication Implication
	Aggregation Aggregation
	Defuzzifier Defuzzifier
	Resolution  int
}

type Result struct {
	Value      float64
	Membership []float64
	XRange     []float64
	Fired      []RuleTruth
}

// Infer runs the mechanism selected by q and defuzzifies its output.
func (e *Engine) Infer(inputs map[string]float64, q Query) (Result, error) {
	res := q.Resolution
	if res == 0 {
		res = config.DefaultResolution
	}

	var (
		membership, xRange []float64
		err                error
	)
	switch q.Mechanism {
	case TruthLevel:
		membership, xRange, err = e.InferTruthLevel(inputs, q.Output, q.Implication, q.Aggregation, res)
	case CompositionMaxMin:
		membership, xRange, err = e.InferComposition(inputs, q.Output, MaxMin, q.Implication, q.Aggregation, res)
	case CompositionMaxProduct:
		membership, xRange, err = e.InferComposition(inputs, q.Output, MaxProduct, q.Implication, q.Aggregation, res)
	default:
		panic("unexpected mechanism")
	}
	if err != nil {
		return Result{}, err
	}

	var fired []RuleTruth
	for _, rt := range e.RuleTruthLevels(inputs, q.Output) {
		if rt.Truth > 0 {
			fired = append(fired, rt)
		}
	}
	return Result{
		Value:      q.Defuzzifier.Defuzzify(membership, xRange),
		Membership: membership,
		XRange:     xRange,
		Fired:      fired,
	}, nil
}

type Comparison struct {
	Mechanism   Mechanism
	Implication Implication
	Value       float64
}

// Compare runs every mechanism with every implication, aggregating with max
// and defuzzifying with the centroid method. Intermediate variables of a rule
// chain are inferred with the same operators.
func (e *Engine) Compare(inputs map[string]float64, output string, resolution int) ([]Comparison, error) {
	var cs []Comparison
	for _, m := range Mechanisms {
		for _, impl := range Implications {
			stages, err := e.InferChain(inputs, Query{
				Output:      output,
				Mechanism:   m,
				Implication: impl,
				Aggregation: Max,
				Defuzzifier: Centroid,
				Resolution:  resolution,
			})
			if err != nil {
				return nil, err
			}
			if len(stages) == 0 {
				_, err = e.outputVariable(output)
				return nil, err
			}
			cs = append(cs, Comparison{Mechanism: m, Implication: impl, Value: stages[len(stages)-1].Value})
		}
	}
	return cs, nil
}
