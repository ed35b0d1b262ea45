package model

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"example.com/fuzzy-inference/base/zaplog"
	"example.com/fuzzy-inference/core/fuzzy"
)

var (
	keywordSplit = regexp.MustCompile(`(?i)\s+(AND|OR)\s+`)
	thenSplit    = regexp.MustCompile(`(?i)\s+THEN\s+`)
	ifPrefix     = regexp.MustCompile(`(?i)^IF\s+`)
	assignment   = regexp.MustCompile(`^(\w+)\s*=\s*(\w+)$`)
	orKeyword    = regexp.MustCompile(`(?i)\s+OR\s+`)
)

// ParseSets reads term definitions, one per line:
//
//	variable:term:type:p1,p2,...
//
// where type is "triangular" or "trapezoidal". Blank lines and lines
// starting with '#' are ignored. The domain of each variable spans the
// parameters of all its terms.
func ParseSets(r io.Reader) (map[string]*fuzzy.Variable, error) {
	type termDef struct {
		name string
		f    fuzzy.MembershipFunc
	}
	var order []string
	defs := make(map[string][]termDef)
	lo := make(map[string]float64)
	hi := make(map[string]float64)

	sc := bufio.NewScanner(r)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		item := fmt.Sprintf("line %d", lineNum)
		parts := strings.Split(line, ":")
		if len(parts) != 4 {
			return nil, fuzzy.ConfigErrorf(item, ErrMalformed, "expected variable:term:type:params, got %q", line)
		}
		varName := strings.TrimSpace(parts[0])
		termName := strings.TrimSpace(parts[1])
		var params []float64
		for _, p := range strings.Split(parts[3], ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fuzzy.ConfigErrorf(item, ErrMalformed, "parameter %q", p)
			}
			params = append(params, x)
		}
		var f fuzzy.MembershipFunc
		var err error
		switch strings.ToLower(strings.TrimSpace(parts[2])) {
		case "triangular":
			f, err = fuzzy.NewMembershipFunc("tri", params)
		case "trapezoidal":
			f, err = fuzzy.NewMembershipFunc("trap", params)
		default:
			err = fuzzy.ConfigErrorf("", fuzzy.ErrUnknownShape, "%q", parts[2])
		}
		if err != nil {
			return nil, withItem(err, item)
		}
		if _, ok := defs[varName]; !ok {
			order = append(order, varName)
			lo[varName], hi[varName] = math.Inf(1), math.Inf(-1)
		}
		defs[varName] = append(defs[varName], termDef{name: termName, f: f})
		for _, p := range params {
			lo[varName] = math.Min(lo[varName], p)
			hi[varName] = math.Max(hi[varName], p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	vars := make(map[string]*fuzzy.Variable, len(order))
	for _, name := range order {
		v, err := fuzzy.NewVariable(name, lo[name], hi[name])
		if err != nil {
			return nil, err
		}
		for _, d := range defs[name] {
			if err = v.AddTerm(d.name, d.f); err != nil {
				return nil, err
			}
		}
		vars[name] = v
	}
	return vars, nil
}

// ParseRule parses a single rule of the form
//
//	IF var=term [AND var=term ...] THEN var=term
//
// Keywords are case insensitive. Disjunctions are not supported.
func ParseRule(s string) (*fuzzy.Rule, error) {
	s = strings.TrimSpace(s)
	loc := ifPrefix.FindStringIndex(s)
	if loc == nil {
		return nil, fuzzy.ConfigErrorf("rule", ErrMalformed, "must start with IF: %q", s)
	}
	body := s[loc[1]:]
	parts := thenSplit.Split(body, -1)
	if len(parts) != 2 {
		return nil, fuzzy.ConfigErrorf("rule", ErrMalformed, "must contain exactly one THEN: %q", s)
	}
	if orKeyword.MatchString(parts[0]) {
		return nil, fuzzy.ConfigErrorf("rule", ErrMalformed, "OR conditions are not supported: %q", s)
	}
	var conds []fuzzy.Condition
	for _, c := range keywordSplit.Split(parts[0], -1) {
		m := assignment.FindStringSubmatch(strings.TrimSpace(c))
		if m == nil {
			return nil, fuzzy.ConfigErrorf("rule", ErrMalformed, "condition %q", c)
		}
		conds = append(conds, fuzzy.Condition{Var: m[1], Term: m[2]})
	}
	m := assignment.FindStringSubmatch(strings.TrimSpace(parts[1]))
	if m == nil {
		return nil, fuzzy.ConfigErrorf("rule", ErrMalformed, "consequent %q", parts[1])
	}
	return fuzzy.NewRule(conds, m[1], m[2])
}

// ParseRules reads one rule per line. Blank lines and lines starting with
// '#' are ignored; malformed lines are logged and skipped.
func ParseRules(log *zap.Logger, r io.Reader) ([]*fuzzy.Rule, error) {
	log = zaplog.OrNop(log)
	var rules []*fuzzy.Rule
	sc := bufio.NewScanner(r)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := ParseRule(line)
		if err != nil {
			log.Warn("skipping malformed rule", zap.Int("line", lineNum), zap.String("text", line), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}
