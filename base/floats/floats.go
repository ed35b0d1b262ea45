package floats

import (
	gfloats "gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Linspace returns n evenly spaced values over the closed interval [lo, hi].
// The last value is exactly hi.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	fs := make([]float64, n)
	if n == 1 {
		fs[0] = lo
		return fs
	}
	gfloats.Span(fs, lo, hi)
	fs[n-1] = hi
	return fs
}

// Interp evaluates the piecewise linear function through (xp[i], fp[i]) at x.
// Values of x outside [xp[0], xp[n-1]] take the value at the nearest end.
// xp must be strictly increasing.
func Interp(x float64, xp, fp []float64) float64 {
	return InterpAll([]float64{x}, xp, fp)[0]
}

// InterpAll is Interp applied to every value of xs.
func InterpAll(xs, xp, fp []float64) []float64 {
	if len(xp) == 0 || len(xp) != len(fp) {
		panic("unexpected number of values")
	}
	ys := make([]float64, len(xs))
	if len(xp) == 1 {
		for i := range ys {
			ys[i] = fp[0]
		}
		return ys
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xp, fp); err != nil {
		panic(err)
	}
	for i, x := range xs {
		ys[i] = pl.Predict(x)
	}
	return ys
}
