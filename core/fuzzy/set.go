package fuzzy

// Set is a named fuzzy subset of a variable's domain.
type Set struct {
	Name string
	Func MembershipFunc
}

func (s *Set) Membership(x float64) float64 {
	return s.Func.Eval(x)
}

func (s *Set) Curve(xs []float64) []float64 {
	return s.Func.Curve(xs)
}
