package inference

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Defuzzifier selects how an output fuzzy set is reduced to a crisp value.
type Defuzzifier int

const (
	Centroid Defuzzifier = iota
	Bisector
	MeanOfMaximum
)

var defuzzifierNames = []string{Centroid: "centroid", Bisector: "bisector", MeanOfMaximum: "mom"}

func (d Defuzzifier) String() string { return enumString(defuzzifierNames, "Defuzzifier", int(d)) }

func ParseDefuzzifier(s string) (Defuzzifier, error) {
	i, err := enumParse(defuzzifierNames, "defuzzifier", s)
	return Defuzzifier(i), err
}

func (d Defuzzifier) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Defuzzifier) UnmarshalText(b []byte) (err error) {
	*d, err = ParseDefuzzifier(string(b))
	return
}

// Defuzzify applies d. An all-zero membership yields the mean of xRange.
func (d Defuzzifier) Defuzzify(membership, xRange []float64) float64 {
	switch d {
	case Centroid:
		return DefuzzifyCentroid(membership, xRange)
	case Bisector:
		return DefuzzifyBisector(membership, xRange)
	case MeanOfMaximum:
		return DefuzzifyMeanOfMaximum(membership, xRange)
	default:
		panic("unexpected defuzzifier")
	}
}

func checkCurve(membership, xRange []float64) {
	if len(xRange) == 0 || len(membership) != len(xRange) {
		panic("unexpected number of values")
	}
}

// DefuzzifyCentroid returns the center of gravity of the membership curve.
func DefuzzifyCentroid(membership, xRange []float64) float64 {
	checkCurve(membership, xRange)
	area := floats.Sum(membership)
	if area == 0 {
		return stat.Mean(xRange, nil)
	}
	return floats.Dot(xRange, membership) / area
}

// DefuzzifyBisector returns the first grid point at which the accumulated
// membership reaches half of the total.
func DefuzzifyBisector(membership, xRange []float64) float64 {
	checkCurve(membership, xRange)
	area := floats.Sum(membership)
	if area == 0 {
		return stat.Mean(xRange, nil)
	}
	i := sort.SearchFloat64s(floats.CumSum(make([]float64, len(membership)), membership), area/2.0)
	if i >= len(xRange) {
		i = len(xRange) - 1
	}
	return xRange[i]
}

// DefuzzifyMeanOfMaximum returns the mean of the grid points at which the
// membership attains its maximum.
func DefuzzifyMeanOfMaximum(membership, xRange []float64) float64 {
	checkCurve(membership, xRange)
	m := floats.Max(membership)
	if m == 0 {
		return stat.Mean(xRange, nil)
	}
	var s float64
	var n int
	for i, v := range membership {
		if v == m {
			s += xRange[i]
			n++
		}
	}
	return s / float64(n)
}
