package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"example.com/fuzzy-inference/core/fuzzy"
)

type document struct {
	Model *modelDoc `json:"model" yaml:"model"`
}

type modelDoc struct {
	Input  inputDocs    `json:"input" yaml:"input"`
	Output *variableDoc `json:"output" yaml:"output"`
	Rules  []ruleDoc    `json:"rules" yaml:"rules"`
}

type variableDoc struct {
	Name  string             `json:"name" yaml:"name"`
	Range []float64          `json:"range" yaml:"range"`
	Terms map[string]termDoc `json:"terms" yaml:"terms"`
}

type termDoc struct {
	Type   string    `json:"type" yaml:"type"`
	Params []float64 `json:"params" yaml:"params"`
}

type ruleDoc struct {
	If   conditionDocs `json:"if" yaml:"if"`
	Then conditionDocs `json:"then" yaml:"then"`
}

// inputDocs accepts either a single variable or a list of variables.
type inputDocs []variableDoc

func (in *inputDocs) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) != 0 && b[0] == '{' {
		var v variableDoc
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*in = inputDocs{v}
		return nil
	}
	var vs []variableDoc
	if err := json.Unmarshal(b, &vs); err != nil {
		return err
	}
	*in = vs
	return nil
}

func (in *inputDocs) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		var v variableDoc
		if err := n.Decode(&v); err != nil {
			return err
		}
		*in = inputDocs{v}
		return nil
	}
	var vs []variableDoc
	if err := n.Decode(&vs); err != nil {
		return err
	}
	*in = vs
	return nil
}

// conditionDocs is a variable to term mapping that keeps the order in which
// the entries appear in the document.
type conditionDocs []fuzzy.Condition

func (cs *conditionDocs) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected an object of variable to term, got %v", ErrMalformed, tok)
	}
	var res conditionDocs
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		var term string
		if err = dec.Decode(&term); err != nil {
			return fmt.Errorf("%w: term of %q: %v", ErrMalformed, tok, err)
		}
		res = append(res, fuzzy.Condition{Var: tok.(string), Term: term})
	}
	if _, err = dec.Token(); err != nil {
		return err
	}
	*cs = res
	return nil
}

func (cs *conditionDocs) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: expected a mapping of variable to term", ErrMalformed, n.Line)
	}
	res := make(conditionDocs, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var term string
		if err := n.Content[i+1].Decode(&term); err != nil {
			return fmt.Errorf("%w: line %d: term of %q: %v", ErrMalformed, n.Content[i+1].Line, n.Content[i].Value, err)
		}
		res = append(res, fuzzy.Condition{Var: n.Content[i].Value, Term: term})
	}
	*cs = res
	return nil
}

// Decode builds a model from a JSON or YAML document of the form
//
//	{"model": {
//	  "input": [{"name": ..., "range": [min, max], "terms": {term: {"type": "tri"|"trap", "params": [...]}}}],
//	  "output": {...},
//	  "rules": [{"if": {var: term, ...}, "then": {var: term}}]
//	}}
func Decode(data []byte, f Format) (*Model, error) {
	var doc document
	switch f {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fuzzy.NewConfigError("json document", err)
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fuzzy.NewConfigError("yaml document", err)
		}
	default:
		return nil, fuzzy.ConfigErrorf("", ErrUnknownFormat, "%v", f)
	}
	return doc.build()
}

func (doc *document) build() (*Model, error) {
	if doc.Model == nil {
		return nil, fuzzy.ConfigErrorf("document", ErrMissingField, "model")
	}
	md := doc.Model
	if len(md.Input) == 0 {
		return nil, fuzzy.ConfigErrorf("model", ErrMissingField, "input")
	}
	if md.Output == nil {
		return nil, fuzzy.ConfigErrorf("model", ErrMissingField, "output")
	}

	m := &Model{Variables: make(map[string]*fuzzy.Variable)}
	add := func(vd *variableDoc) (string, error) {
		v, err := vd.build()
		if err != nil {
			return "", err
		}
		if _, ok := m.Variables[v.Name]; ok {
			return "", fuzzy.ConfigErrorf("model", ErrDuplicateVar, "%q", v.Name)
		}
		m.Variables[v.Name] = v
		return v.Name, nil
	}
	for i := range md.Input {
		name, err := add(&md.Input[i])
		if err != nil {
			return nil, err
		}
		m.Inputs = append(m.Inputs, name)
	}
	name, err := add(md.Output)
	if err != nil {
		return nil, err
	}
	m.Output = name

	for i, rd := range md.Rules {
		r, err := rd.build()
		if err != nil {
			return nil, withItem(err, fmt.Sprintf("rule %d", i+1))
		}
		m.Rules = append(m.Rules, r)
	}
	return m, nil
}

func (vd *variableDoc) build() (*fuzzy.Variable, error) {
	if vd.Name == "" {
		return nil, fuzzy.ConfigErrorf("variable", ErrMissingField, "name")
	}
	item := fmt.Sprintf("variable %q", vd.Name)
	if len(vd.Range) != 2 {
		return nil, fuzzy.ConfigErrorf(item, ErrMalformed, "range must be [min, max], got %v", vd.Range)
	}
	v, err := fuzzy.NewVariable(vd.Name, vd.Range[0], vd.Range[1])
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(vd.Terms))
	for name := range vd.Terms {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		td := vd.Terms[name]
		f, err := fuzzy.NewMembershipFunc(td.Type, td.Params)
		if err != nil {
			return nil, withItem(err, fmt.Sprintf("%s term %q", item, name))
		}
		if err = v.AddTerm(name, f); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (rd *ruleDoc) build() (*fuzzy.Rule, error) {
	if len(rd.Then) != 1 {
		return nil, fuzzy.ConfigErrorf("", ErrMalformed, "then must name exactly one variable, got %d", len(rd.Then))
	}
	return fuzzy.NewRule([]fuzzy.Condition(rd.If), rd.Then[0].Var, rd.Then[0].Term)
}
