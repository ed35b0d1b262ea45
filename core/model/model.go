package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"example.com/fuzzy-inference/base/zaplog"
	"example.com/fuzzy-inference/core/fuzzy"
)

// Model is a rule base together with the variables it refers to.
type Model struct {
	Variables map[string]*fuzzy.Variable
	Rules     []*fuzzy.Rule
	Inputs    []string
	Output    string
}

type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath derives the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return 0, fuzzy.ConfigErrorf(path, ErrUnknownFormat, "%q", filepath.Ext(path))
	}
}

// LoadFile reads and decodes a JSON or YAML model document. Rules that refer
// to unknown variables or terms are kept and logged. A path ending in .sets
// or .rules names a pair of text files sharing the same stem.
func LoadFile(log *zap.Logger, path string) (*Model, error) {
	log = zaplog.OrNop(log)
	switch ext := filepath.Ext(path); strings.ToLower(ext) {
	case ".sets", ".rules":
		stem := strings.TrimSuffix(path, ext)
		return LoadText(log, stem+".sets", stem+".rules")
	}
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	m.logWarnings(log, path)
	return m, nil
}

// LoadText reads a model from a term definition file and a rule file in the
// line based text formats. Malformed rule lines are logged and skipped.
func LoadText(log *zap.Logger, setsPath, rulesPath string) (*Model, error) {
	log = zaplog.OrNop(log)
	sf, err := os.Open(setsPath)
	if err != nil {
		return nil, err
	}
	defer sf.Close()
	vars, err := ParseSets(sf)
	if err != nil {
		return nil, err
	}
	rf, err := os.Open(rulesPath)
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	rules, err := ParseRules(log, rf)
	if err != nil {
		return nil, err
	}
	m := &Model{Variables: vars, Rules: rules}
	m.Inputs, m.Output = roles(rules)
	m.logWarnings(log, rulesPath)
	return m, nil
}

// roles derives input and output variable names from a rule base: inputs
// are condition variables that are never concluded about, the output is the
// only consequent variable that no rule uses as a condition. Consequent
// variables used as conditions are intermediate stages of a rule chain.
func roles(rules []*fuzzy.Rule) (inputs []string, output string) {
	results := make(map[string]bool)
	conditions := make(map[string]bool)
	for _, r := range rules {
		results[r.ResultVar] = true
		for _, c := range r.Conditions {
			conditions[c.Var] = true
		}
	}
	seen := make(map[string]bool)
	var sinks []string
	for _, r := range rules {
		for _, c := range r.Conditions {
			if !results[c.Var] && !seen[c.Var] {
				seen[c.Var] = true
				inputs = append(inputs, c.Var)
			}
		}
		if !conditions[r.ResultVar] && !seen[r.ResultVar] {
			seen[r.ResultVar] = true
			sinks = append(sinks, r.ResultVar)
		}
	}
	slices.Sort(inputs)
	if len(sinks) == 1 {
		output = sinks[0]
	}
	return inputs, output
}

// Validate reports rules that refer to unknown variables or terms. Such
// rules are not fatal: they never fire.
func (m *Model) Validate() []error {
	var errs []error
	check := func(r *fuzzy.Rule, v, t string) {
		vv, ok := m.Variables[v]
		if !ok {
			errs = append(errs, fuzzy.ConfigErrorf(r.String(), fuzzy.ErrUnknownVariable, "%q", v))
			return
		}
		if _, ok := vv.Term(t); !ok {
			errs = append(errs, fuzzy.ConfigErrorf(r.String(), fuzzy.ErrUnknownTerm, "%q of %q", t, v))
		}
	}
	for _, r := range m.Rules {
		for _, c := range r.Conditions {
			check(r, c.Var, c.Term)
		}
		check(r, r.ResultVar, r.ResultTerm)
	}
	return errs
}

func (m *Model) logWarnings(log *zap.Logger, source string) {
	for _, err := range m.Validate() {
		log.Warn("rule will never fire", zap.String("source", source), zap.Error(err))
	}
}

func withItem(err error, item string) error {
	var cerr *fuzzy.ConfigError
	if errors.As(err, &cerr) {
		if cerr.Item == "" {
			return fuzzy.NewConfigError(item, cerr.Err)
		}
		return fuzzy.NewConfigError(item+": "+cerr.Item, cerr.Err)
	}
	return fuzzy.NewConfigError(item, err)
}
