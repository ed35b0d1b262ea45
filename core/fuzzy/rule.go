package fuzzy

import (
	"fmt"
	"strings"
)

type Condition struct {
	Var  string
	Term string
}

func (c Condition) String() string {
	return c.Var + "=" + c.Term
}

// Rule is a conjunction of conditions with a single consequent. Conditions
// keep their declaration order. Rules are never modified once built.
type Rule struct {
	Conditions []Condition
	ResultVar  string
	ResultTerm string
}

func NewRule(conds []Condition, resultVar, resultTerm string) (*Rule, error) {
	if len(conds) == 0 {
		return nil, NewConfigError("rule", ErrNoConditions)
	}
	seen := make(map[string]bool, len(conds))
	for _, c := range conds {
		if c.Var == "" || c.Term == "" {
			return nil, NewConfigError("rule", fmt.Errorf("condition %q: %w", c.String(), ErrEmptyName))
		}
		if seen[c.Var] {
			return nil, ConfigErrorf("rule", ErrDuplicateCondition, "%q", c.Var)
		}
		seen[c.Var] = true
	}
	if resultVar == "" || resultTerm == "" {
		return nil, NewConfigError("rule", fmt.Errorf("consequent: %w", ErrEmptyName))
	}
	return &Rule{
		Conditions: append([]Condition(nil), conds...),
		ResultVar:  resultVar,
		ResultTerm: resultTerm,
	}, nil
}

// Condition returns the term required of the named variable.
func (r *Rule) Condition(v string) (string, bool) {
	for _, c := range r.Conditions {
		if c.Var == v {
			return c.Term, true
		}
	}
	return "", false
}

func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString("IF ")
	for i, c := range r.Conditions {
		if i != 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}
	b.WriteString(" THEN ")
	b.WriteString(r.ResultVar)
	b.WriteString("=")
	b.WriteString(r.ResultTerm)
	return b.String()
}
