package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Shape selects the membership function variant.
type Shape int

const (
	Triangular Shape = iota + 1
	Trapezoidal
)

func (s Shape) String() string {
	switch s {
	case Triangular:
		return "tri"
	case Trapezoidal:
		return "trap"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

func (s Shape) numParams() int {
	switch s {
	case Triangular:
		return 3
	case Trapezoidal:
		return 4
	default:
		return 0
	}
}

// MembershipFunc is a triangular (A, B, C) or trapezoidal (A, B, C, D)
// membership function. D is unused for triangles. The zero value is not a
// valid function; use the constructors.
type MembershipFunc struct {
	Shape      Shape
	A, B, C, D float64
}

func NewTriangular(a, b, c float64) (MembershipFunc, error) {
	return newMembershipFunc(Triangular, []float64{a, b, c})
}

func NewTrapezoidal(a, b, c, d float64) (MembershipFunc, error) {
	return newMembershipFunc(Trapezoidal, []float64{a, b, c, d})
}

// MustTriangular is like NewTriangular but panics on invalid parameters.
func MustTriangular(a, b, c float64) MembershipFunc {
	f, err := NewTriangular(a, b, c)
	if err != nil {
		panic(err)
	}
	return f
}

// MustTrapezoidal is like NewTrapezoidal but panics on invalid parameters.
func MustTrapezoidal(a, b, c, d float64) MembershipFunc {
	f, err := NewTrapezoidal(a, b, c, d)
	if err != nil {
		panic(err)
	}
	return f
}

// NewMembershipFunc builds a function from a model document type name,
// "tri" or "trap" (case insensitive), and its parameters.
func NewMembershipFunc(kind string, params []float64) (MembershipFunc, error) {
	var s Shape
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "tri":
		s = Triangular
	case "trap":
		s = Trapezoidal
	default:
		return MembershipFunc{}, ConfigErrorf("", ErrUnknownShape, "%q", kind)
	}
	return newMembershipFunc(s, params)
}

func newMembershipFunc(s Shape, params []float64) (MembershipFunc, error) {
	n := s.numParams()
	if n == 0 {
		return MembershipFunc{}, ConfigErrorf("", ErrUnknownShape, "%v", s)
	}
	if len(params) != n {
		return MembershipFunc{}, ConfigErrorf("", ErrParamCount,
			"%v takes %d parameters, got %d (%v)", s, n, len(params), params)
	}
	for i, p := range params {
		if math.IsNaN(p) {
			return MembershipFunc{}, ConfigErrorf("", ErrInvalidParam, "%v parameter %d", s, i)
		}
		if i > 0 && params[i-1] > p {
			return MembershipFunc{}, ConfigErrorf("", ErrUnorderedParams, "%v %v", s, params)
		}
	}
	f := MembershipFunc{Shape: s, A: params[0], B: params[1], C: params[2]}
	if s == Trapezoidal {
		f.D = params[3]
	}
	return f, nil
}

// Params returns the parameters in declaration order.
func (f MembershipFunc) Params() []float64 {
	switch f.Shape {
	case Triangular:
		return []float64{f.A, f.B, f.C}
	case Trapezoidal:
		return []float64{f.A, f.B, f.C, f.D}
	default:
		return nil
	}
}

// Eval returns the degree of membership of x, always in [0, 1].
//
// The peak of a triangle and the plateau of a trapezoid have full membership
// even when a shoulder is degenerate (A == B or C == D), so that a term like
// tri(3, 6, 6) is fully satisfied at 6. Beyond a degenerate shoulder the
// function drops to 0 immediately.
func (f MembershipFunc) Eval(x float64) float64 {
	switch f.Shape {
	case Triangular:
		return ramp(x, f.A, f.B, f.B, f.C)
	case Trapezoidal:
		return ramp(x, f.A, f.B, f.C, f.D)
	default:
		return 0.0
	}
}

func ramp(x, a, b, c, d float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0.0
	case b <= x && x <= c:
		return 1.0
	case x <= a || x >= d:
		return 0.0
	case x < b:
		if b == a {
			return 0.0
		}
		return (x - a) / (b - a)
	default:
		if d == c {
			return 0.0
		}
		return (d - x) / (d - c)
	}
}

// Curve evaluates f at every point of xs.
func (f MembershipFunc) Curve(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f.Eval(x)
	}
	return ys
}

func (f MembershipFunc) String() string {
	return fmt.Sprintf("%v%v", f.Shape, f.Params())
}
