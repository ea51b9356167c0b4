package assigner

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/evaluation"
)

// Input is what a rule sees for one (variant, mode) pair.
type Input struct {
	Eval *evaluation.VariantEvaluation
	Mode acmg.ModeOfInheritance
	Deps *Deps
}

// Outcome is a rule's contribution.
type Outcome struct {
	Evidence []acmg.Evidence
	// Candidates counts reference variants that passed the rule's
	// significance and review filters. Only PS1/PM5 sets it.
	Candidates int
}

func (o *Outcome) add(c acmg.Criterion, st acmg.Strength) {
	o.Evidence = append(o.Evidence, acmg.Evidence{Criterion: c, Strength: st})
}

// EvaluateFunc evaluates one rule.
type EvaluateFunc func(in *Input) (Outcome, error)

// Rule evaluates one or more related criteria. A rule without Evaluate is
// a known but unimplemented criterion.
type Rule struct {
	Name     string
	Criteria []acmg.Criterion
	Evaluate EvaluateFunc
}

// Implemented reports whether the rule can assign evidence.
func (r Rule) Implemented() bool {
	return r.Evaluate != nil
}

// Unimplemented declares criteria that are recognised but never assigned.
func Unimplemented(c acmg.Criterion) Rule {
	return Rule{Name: c.String(), Criteria: []acmg.Criterion{c}}
}

// Registry is an ordered set of rules. Rules run in registration order.
type Registry struct {
	rules  []Rule
	byName map[string]int
}

// NewRegistry validates rules: names are unique and no criterion belongs
// to two rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(rules))}
	owner := make(map[acmg.Criterion]string)
	for _, rule := range rules {
		if rule.Name == "" || len(rule.Criteria) == 0 {
			return nil, fmt.Errorf("register rule %q: name and criteria are required", rule.Name)
		}
		if _, dup := r.byName[rule.Name]; dup {
			return nil, fmt.Errorf("register rule %q: duplicate name", rule.Name)
		}
		for _, c := range rule.Criteria {
			if prev, dup := owner[c]; dup {
				return nil, fmt.Errorf("register rule %q: %s already assigned by %s", rule.Name, c, prev)
			}
			owner[c] = rule.Name
		}
		r.byName[rule.Name] = len(r.rules)
		r.rules = append(r.rules, rule)
	}
	return r, nil
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "PS1/PM5", Criteria: []acmg.Criterion{acmg.PS1, acmg.PM5}, Evaluate: evaluatePS1PM5},
		{Name: "PP2/BP1", Criteria: []acmg.Criterion{acmg.PP2, acmg.BP1}, Evaluate: evaluatePP2BP1},
		{Name: "PP3/BP4", Criteria: []acmg.Criterion{acmg.PP3, acmg.BP4}, Evaluate: evaluatePP3BP4},
		{Name: "PM2", Criteria: []acmg.Criterion{acmg.PM2}, Evaluate: evaluatePM2},
		{Name: "BA1", Criteria: []acmg.Criterion{acmg.BA1}, Evaluate: evaluateBA1},
		{Name: "BS2", Criteria: []acmg.Criterion{acmg.BS2}, Evaluate: evaluateBS2},
		{Name: "BP7", Criteria: []acmg.Criterion{acmg.BP7}, Evaluate: evaluateBP7},
		// Allele frequency against disease incidence needs per-disease
		// prevalence data.
		Unimplemented(acmg.BS1),
		// Loss-of-function mechanism needs curated gene-level LoF data.
		Unimplemented(acmg.PVS1),
	}
}

// DefaultRegistry returns a registry of DefaultRules.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Rules returns the registered rules in order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Lookup returns the rule registered under name.
func (r *Registry) Lookup(name string) (Rule, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// Select returns a registry restricted to the rules that own any of the
// given criteria codes, keeping registration order.
func (r *Registry) Select(codes ...string) (*Registry, error) {
	want := make(map[acmg.Criterion]bool, len(codes))
	for _, code := range codes {
		c, err := acmg.ParseCriterion(code)
		if err != nil {
			return nil, err
		}
		want[c] = true
	}
	var rules []Rule
	for _, rule := range r.rules {
		for _, c := range rule.Criteria {
			if want[c] {
				rules = append(rules, rule)
				break
			}
		}
	}
	return NewRegistry(rules...)
}

// Unimplemented lists the criteria of rules that cannot assign evidence.
func (r *Registry) Unimplemented() []acmg.Criterion {
	var out []acmg.Criterion
	for _, rule := range r.rules {
		if !rule.Implemented() {
			out = append(out, rule.Criteria...)
		}
	}
	return out
}

// String lists the rule names, e.g. "PS1/PM5,PP2/BP1".
func (r *Registry) String() string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return strings.Join(names, ",")
}
