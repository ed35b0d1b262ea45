package inference

import (
	"math"
	"time"

	"go.uber.org/zap"

	"example.com/fuzzy-inference/base/floats"
	"example.com/fuzzy-inference/core/fuzzy"
)

// relation is the fuzzy relation R(x, y) = impl(A(x), B(y)) of a single rule,
// sampled on an nx by ny grid and stored row by row.
type relation struct {
	nx, ny int
	r      []float64
}

func newRelation(impl Implication, muA, muB []float64) *relation {
	rel := &relation{nx: len(muA), ny: len(muB), r: make([]float64, len(muA)*len(muB))}
	for i, a := range muA {
		row := rel.r[i*rel.ny : (i+1)*rel.ny]
		for j, b := range muB {
			row[j] = impl.Apply(a, b)
		}
	}
	return rel
}

// compose returns B'(y) = max over x of comp(A'(x), R(x, y)).
func (rel *relation) compose(comp Composition, aPrime []float64) []float64 {
	if len(aPrime) != rel.nx {
		panic("unexpected number of values")
	}
	b := make([]float64, rel.ny)
	for i, a := range aPrime {
		row := rel.r[i*rel.ny : (i+1)*rel.ny]
		for j, r := range row {
			b[j] = max(b[j], comp.combine(a, r))
		}
	}
	return b
}

// InferComposition computes the output fuzzy set of the rules concluding
// about output by composing the fuzzified crisp input with each rule's fuzzy
// relation and aggregating the results.
//
// Each relation is built over the first condition of its rule only; further
// conditions of a rule are ignored. The mechanism is therefore meant for
// rule bases with a single input variable. A rule whose first condition has
// no finite input, or references an unknown variable or term, contributes
// nothing.
func (e *Engine) InferComposition(inputs map[string]float64, output string,
	comp Composition, impl Implication, agg Aggregation, resolution int) (
	membership, xRange []float64, err error) {
	v, err := e.outputVariable(output)
	if err != nil {
		return nil, nil, err
	}
	if err = checkResolution(resolution); err != nil {
		return nil, nil, err
	}

	mech := comp.mechanism()
	mtrcs := engineMtrcs.Load()
	t0 := time.Now()

	xRange = v.Grid(resolution)
	membership = make([]float64, resolution)

	var applied int
	for _, r := range e.rules {
		if r.ResultVar != output {
			continue
		}
		mtrcs.rulesEvaluated.Inc()
		if len(r.Conditions) == 0 {
			mtrcs.rulesSkipped.Inc()
			continue
		}
		c := r.Conditions[0]
		if len(r.Conditions) > 1 {
			e.log.Debug("composition uses the first condition only",
				zap.Stringer("rule", r), zap.Stringer("condition", c))
		}
		inVar, muA, ok := e.antecedent(c)
		if !ok {
			mtrcs.rulesSkipped.Inc()
			e.log.Debug("skipping rule with unknown condition", zap.Stringer("rule", r))
			continue
		}
		s, ok := v.Term(r.ResultTerm)
		if !ok {
			mtrcs.rulesSkipped.Inc()
			e.log.Debug("skipping rule with unknown consequent", zap.Stringer("rule", r))
			continue
		}
		x, ok := inputs[c.Var]
		if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}

		rel := newRelation(impl, muA, s.Curve(xRange))

		xGrid := inVar.Grid(e.condRes)
		xs, aPrime := singleton(inVar, x, e.condRes)
		aPrime = floats.InterpAll(xGrid, xs, aPrime)

		AggregateInto(agg, membership, rel.compose(comp, aPrime))
		applied++
	}

	mtrcs.inferences.WithLabelValues(mech.String()).Inc()
	mtrcs.inferenceSeconds.WithLabelValues(mech.String()).Observe(time.Since(t0).Seconds())
	e.log.Debug("composition inference",
		zap.String("output", output),
		zap.Stringer("composition", comp),
		zap.Stringer("implication", impl),
		zap.Stringer("aggregation", agg),
		zap.Int("resolution", resolution),
		zap.Int("condition resolution", e.condRes),
		zap.Int("rules applied", applied),
	)
	return membership, xRange, nil
}

// antecedent returns the variable of c and the membership of c's term
// sampled on the condition grid.
func (e *Engine) antecedent(c fuzzy.Condition) (*fuzzy.Variable, []float64, bool) {
	v, ok := e.variables[c.Var]
	if !ok {
		return nil, nil, false
	}
	s, ok := v.Term(c.Term)
	if !ok {
		return nil, nil, false
	}
	return v, s.Curve(v.Grid(e.condRes)), true
}
