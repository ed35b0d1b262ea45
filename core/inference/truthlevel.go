package inference

import (
	"time"

	"go.uber.org/zap"
)

// InferTruthLevel computes the output fuzzy set of the rules concluding about
// output by clipping (Mamdani) or scaling (Larsen) each consequent with the
// truth level of its rule and aggregating the results. It works with any
// number of input variables.
func (e *Engine) InferTruthLevel(inputs map[string]float64, output string,
	impl Implication, agg Aggregation, resolution int) (membership, xRange []float64, err error) {
	v, err := e.outputVariable(output)
	if err != nil {
		return nil, nil, err
	}
	if err = checkResolution(resolution); err != nil {
		return nil, nil, err
	}

	mtrcs := engineMtrcs.Load()
	t0 := time.Now()

	xRange = v.Grid(resolution)
	membership = make([]float64, resolution)

	var fired int
	for _, r := range e.rules {
		if r.ResultVar != output {
			continue
		}
		mtrcs.rulesEvaluated.Inc()
		alpha, ok := e.truth(r, inputs)
		if !ok {
			mtrcs.rulesSkipped.Inc()
			e.log.Debug("skipping rule with unknown condition", zap.Stringer("rule", r))
			continue
		}
		if alpha == 0.0 {
			continue
		}
		s, ok := v.Term(r.ResultTerm)
		if !ok {
			mtrcs.rulesSkipped.Inc()
			e.log.Debug("skipping rule with unknown consequent", zap.Stringer("rule", r))
			continue
		}
		AggregateInto(agg, membership, impl.ApplyCurve(alpha, s.Curve(xRange)))
		fired++
	}

	mtrcs.inferences.WithLabelValues(TruthLevel.String()).Inc()
	mtrcs.inferenceSeconds.WithLabelValues(TruthLevel.String()).Observe(time.Since(t0).Seconds())
	e.log.Debug("truth level inference",
		zap.String("output", output),
		zap.Stringer("implication", impl),
		zap.Stringer("aggregation", agg),
		zap.Int("resolution", resolution),
		zap.Int("rules fired", fired),
	)
	return membership, xRange, nil
}
