package inference

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"example.com/fuzzy-inference/base/zaplog"
	"example.com/fuzzy-inference/core/config"
	"example.com/fuzzy-inference/core/fuzzy"
)

// Engine evaluates a fixed rule base over a fixed set of variables. It never
// modifies its rules or variables and keeps no state between calls, so it
// may be used from several goroutines at once.
type Engine struct {
	log       *zap.Logger
	rules     []*fuzzy.Rule
	variables map[string]*fuzzy.Variable
	condRes   int
}

// RuleTruth is a rule together with the truth level of its conditions.
type RuleTruth struct {
	Rule  *fuzzy.Rule
	Truth float64
}

// New returns an engine for the given rules and variables. The condition
// resolution is the number of input grid points used by relational
// composition; values below config.MinConditionResolution are raised.
func New(log *zap.Logger, rules []*fuzzy.Rule, variables map[string]*fuzzy.Variable,
	conditionResolution int) *Engine {
	return &Engine{
		log:       zaplog.OrNop(log),
		rules:     rules,
		variables: variables,
		condRes:   max(config.MinConditionResolution, conditionResolution),
	}
}

func (e *Engine) Rules() []*fuzzy.Rule { return e.rules }

func (e *Engine) Variables() map[string]*fuzzy.Variable { return e.variables }

func (e *Engine) ConditionResolution() int { return e.condRes }

func (e *Engine) outputVariable(name string) (*fuzzy.Variable, error) {
	v, ok := e.variables[name]
	if !ok {
		return nil, fuzzy.ConfigErrorf(fmt.Sprintf("output variable %q", name), fuzzy.ErrUnknownVariable, "%q", name)
	}
	return v, nil
}

// truth returns the truth level of r's conditions for the given inputs and
// whether r is well formed. A rule whose condition variable has no input, or
// which references an unknown variable or term, has truth 0.
func (e *Engine) truth(r *fuzzy.Rule, inputs map[string]float64) (alpha float64, ok bool) {
	alpha = 1.0
	for _, c := range r.Conditions {
		x, ok := inputs[c.Var]
		if !ok {
			return 0.0, true
		}
		v, ok := e.variables[c.Var]
		if !ok {
			return 0.0, false
		}
		s, ok := v.Term(c.Term)
		if !ok {
			return 0.0, false
		}
		alpha = math.Min(alpha, s.Membership(x))
	}
	return alpha, true
}

// Truth returns the truth level of r's conditions for the given inputs.
func (e *Engine) Truth(r *fuzzy.Rule, inputs map[string]float64) float64 {
	alpha, _ := e.truth(r, inputs)
	return alpha
}

// RuleTruthLevels returns the truth level of every rule in declaration order.
// If output is not empty, only rules concluding about output are included.
func (e *Engine) RuleTruthLevels(inputs map[string]float64, output string) []RuleTruth {
	var rts []RuleTruth
	for _, r := range e.rules {
		if output != "" && r.ResultVar != output {
			continue
		}
		rts = append(rts, RuleTruth{Rule: r, Truth: e.Truth(r, inputs)})
	}
	return rts
}

func checkResolution(resolution int) error {
	if resolution < 2 || resolution > config.MaxResolution {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}
	return nil
}
