package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Evaluator applies a fixed rule set. The set is sorted once at
// construction by (priority desc, declaration index asc), which pins
// the tie-break: when two triggered rules share a priority, the
// first-declared rule's action wins.
type Evaluator struct {
	ruleSet []Rule
}

func NewEvaluator(ruleSet []Rule) *Evaluator {
	ordered := make([]Rule, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return &Evaluator{ruleSet: ordered}
}

// Apply evaluates every rule against the subject. The highest-priority
// triggered rule's action becomes the recommendation.
func (e *Evaluator) Apply(subject Subject) Result {
	res := Result{}
	for _, r := range e.ruleSet {
		if !evalCondition(r.Condition, subject) {
			continue
		}
		res.TriggeredRules = append(res.TriggeredRules, r.ID)
		if r.Category != "" {
			res.RiskFlags = appendUnique(res.RiskFlags, "rule_"+r.Category)
		}
		if !res.HasRecommendation {
			res.RecommendedAction = r.Action
			res.HasRecommendation = true
		}
	}
	res.RuleCount = len(res.TriggeredRules)
	return res
}

func evalCondition(c Condition, s Subject) bool {
	if !c.leaf() {
		switch c.Logic {
		case LogicAnd:
			for _, child := range c.Children {
				if !evalCondition(child, s) {
					return false
				}
			}
			return true
		case LogicOr:
			for _, child := range c.Children {
				if evalCondition(child, s) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return evalLeaf(c, s)
}

func evalLeaf(c Condition, s Subject) bool {
	actual, ok := s.Resolve(c.Field)

	switch c.Operator {
	case OpExists:
		return ok && actual != nil
	case OpNotExists:
		return !ok || actual == nil
	}

	if !ok || actual == nil {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return looseEqual(actual, c.Value)
	case OpNotEquals:
		return !looseEqual(actual, c.Value)
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		a, aok := amountValue(actual)
		b, bok := amountValue(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case OpGreaterThan:
			return a.GreaterThan(b)
		case OpLessThan:
			return a.LessThan(b)
		case OpGreaterOrEqual:
			return a.GreaterThanOrEqual(b)
		default:
			return a.LessThanOrEqual(b)
		}
	case OpIn:
		return memberOf(actual, c.Value)
	case OpNotIn:
		return !memberOf(actual, c.Value)
	case OpContains:
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(c.Value))
	case OpRegex:
		pattern, pok := c.Value.(string)
		if !pok {
			return false
		}
		matched, err := regexp.MatchString(pattern, fmt.Sprint(actual))
		return err == nil && matched
	default:
		return false
	}
}

// looseEqual compares numerically when both sides parse as numbers,
// falling back to string equality. Rule definitions routinely pair an
// int literal with a decimal field.
func looseEqual(a, b any) bool {
	if da, aok := amountValue(a); aok {
		if db, bok := amountValue(b); bok {
			return da.Equal(db)
		}
	}
	if ba, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ba == bb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func memberOf(actual, set any) bool {
	switch members := set.(type) {
	case []string:
		for _, m := range members {
			if looseEqual(actual, m) {
				return true
			}
		}
	case []any:
		for _, m := range members {
			if looseEqual(actual, m) {
				return true
			}
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
