package inference

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"example.com/fuzzy-inference/core/fuzzy"
)

// Stage is the result of inferring one variable of a rule chain.
type Stage struct {
	Output string
	Result
}

// consequents returns the variables concluded about by some rule, in order of
// first appearance.
func (e *Engine) consequents() []string {
	var vs []string
	seen := map[string]bool{}
	for _, r := range e.rules {
		if !seen[r.ResultVar] {
			seen[r.ResultVar] = true
			vs = append(vs, r.ResultVar)
		}
	}
	return vs
}

// Stages returns the variables to infer, in order, so that the crisp value of
// output is known. Every consequent variable that output depends on through
// the conditions of its rules comes before output. An empty output selects
// every consequent variable of the rule base.
func (e *Engine) Stages(output string) ([]string, error) {
	targets := e.consequents()
	if output != "" {
		if _, err := e.outputVariable(output); err != nil {
			return nil, err
		}
		targets = []string{output}
	}

	deps := map[string][]string{}
	concluded := map[string]bool{}
	for _, r := range e.rules {
		concluded[r.ResultVar] = true
	}
	for _, r := range e.rules {
		for _, c := range r.Conditions {
			if concluded[c.Var] && !slices.Contains(deps[r.ResultVar], c.Var) {
				deps[r.ResultVar] = append(deps[r.ResultVar], c.Var)
			}
		}
	}

	const (
		visiting = 1
		done     = 2
	)
	var (
		order []string
		path  []string
		visit func(v string) error
	)
	state := map[string]int{}
	visit = func(v string) error {
		switch state[v] {
		case done:
			return nil
		case visiting:
			return fuzzy.ConfigErrorf("rules", ErrRuleCycle, "%s -> %s",
				strings.Join(path, " -> "), v)
		}
		state[v] = visiting
		path = append(path, v)
		for _, d := range deps[v] {
			if err := visit(d); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[v] = done
		order = append(order, v)
		return nil
	}
	for _, v := range targets {
		if err := visit(v); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// InferChain infers the variables returned by Stages(q.Output) one after
// another with the operators of q. The crisp value of each stage becomes an
// input of the stages after it. An intermediate variable given in inputs is
// taken as is and not inferred. The last stage is the requested output.
func (e *Engine) InferChain(inputs map[string]float64, q Query) ([]Stage, error) {
	order, err := e.Stages(q.Output)
	if err != nil {
		return nil, err
	}

	known := make(map[string]float64, len(inputs)+len(order))
	for k, v := range inputs {
		known[k] = v
	}

	var stages []Stage
	for i, v := range order {
		if _, ok := inputs[v]; ok && i < len(order)-1 {
			e.log.Debug("using given value of intermediate variable", zap.String("variable", v))
			continue
		}
		sq := q
		sq.Output = v
		r, err := e.Infer(known, sq)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", v, err)
		}
		known[v] = r.Value
		stages = append(stages, Stage{Output: v, Result: r})
		e.log.Debug("inferred stage", zap.String("variable", v), zap.Float64("value", r.Value))
	}
	return stages, nil
}
