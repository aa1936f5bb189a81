package logic

import (
	"fmt"

	"github.com/agext/levenshtein"
)

// RuleSet is an immutable collection of rules with unique names. Build
// one with RuleSetBuilder; engine calls share it freely across
// goroutines because nothing mutates it after Build.
type RuleSet struct {
	rules  []Rule
	byName map[string]int
}

// RuleSetBuilder accumulates rules and freezes them into a RuleSet.
type RuleSetBuilder struct {
	rules []Rule
	err   error
}

// NewRuleSetBuilder creates an empty builder.
func NewRuleSetBuilder() *RuleSetBuilder {
	return &RuleSetBuilder{}
}

// Add appends a rule. Errors are deferred to Build so calls chain.
func (b *RuleSetBuilder) Add(r Rule) *RuleSetBuilder {
	if b.err != nil {
		return b
	}
	if err := r.validate(); err != nil {
		b.err = err
		return b
	}
	b.rules = append(b.rules, r)
	return b
}

// Build validates name uniqueness, compiles every constraint, and
// freezes the set.
func (b *RuleSetBuilder) Build() (*RuleSet, error) {
	if b.err != nil {
		return nil, b.err
	}

	byName := make(map[string]int, len(b.rules))
	for i, r := range b.rules {
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: rule %q registered twice", ErrRuleConflict, r.Name)
		}
		byName[r.Name] = i

		for j := range r.Conditions {
			if c := r.Conditions[j].Constraint; c != nil {
				if err := c.compile(); err != nil {
					return nil, fmt.Errorf("rule %q: %w", r.Name, err)
				}
			}
		}
	}

	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	return &RuleSet{rules: rules, byName: byName}, nil
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Rules returns a copy of the rule list.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Lookup finds a rule by name. Unknown names get a closest-match
// suggestion when one is plausible.
func (rs *RuleSet) Lookup(name string) (Rule, error) {
	if i, ok := rs.byName[name]; ok {
		return rs.rules[i], nil
	}
	if suggestion := rs.closestName(name); suggestion != "" {
		return Rule{}, fmt.Errorf("%w: unknown rule %q (did you mean %q?)", ErrInvalidRule, name, suggestion)
	}
	return Rule{}, fmt.Errorf("%w: unknown rule %q", ErrInvalidRule, name)
}

// closestName returns the registered name most similar to the query, or
// "" when nothing is close enough to be a likely typo.
func (rs *RuleSet) closestName(name string) string {
	const minSimilarity = 0.7
	best, bestScore := "", minSimilarity
	for candidate := range rs.byName {
		if score := levenshtein.Similarity(name, candidate, nil); score >= bestScore {
			best, bestScore = candidate, score
		}
	}
	return best
}

// OfKind returns the rules with the given kind, in registration order.
func (rs *RuleSet) OfKind(kinds ...Kind) []Rule {
	var out []Rule
	for _, r := range rs.rules {
		for _, k := range kinds {
			if r.Kind == k {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Asserting returns the rules carrying at least one Assert action,
// which are the only rules backward chaining can apply.
func (rs *RuleSet) Asserting() []Rule {
	var out []Rule
	for _, r := range rs.rules {
		for _, a := range r.Actions {
			if a.Kind == ActionAssert {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
