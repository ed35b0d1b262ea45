package inference

import (
	"math"

	"example.com/fuzzy-inference/core/fuzzy"
)

// singleton approximates the crisp value x of v by a narrow triangular spike
// sampled on n points spanning v's domain.
func singleton(v *fuzzy.Variable, x float64, n int) (xs, mu []float64) {
	xs = v.Grid(n)
	span := v.Span()
	if span == 0 {
		span = 1.0
	}
	halfWidth := span / float64(max(n/2, 1))
	mu = make([]float64, n)
	for i, xi := range xs {
		mu[i] = math.Max(1.0-math.Abs(xi-x)/halfWidth, 0.0)
	}
	return xs, mu
}
