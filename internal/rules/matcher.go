package rules

import (
	"sort"

	"rxledger/bank-import/internal/models"
)

// Match is a successful rule evaluation: the winning rule and its
// allocations, returned verbatim with no runtime re-normalization.
type Match struct {
	Rule        models.ClassificationRule
	Allocations []models.Allocation
}

// Matcher evaluates an ordered rule set against transactions.
type Matcher struct{}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match returns the first active rule whose condition groups both hold, or
// nil when nothing matches (which is not an error: the transaction simply
// stays unclassified). Evaluation order is deterministic: priority
// ascending, then creation time, then id.
func (m *Matcher) Match(tx *models.CanonicalTransaction, ruleSet []models.ClassificationRule) *Match {
	ordered := orderRules(ruleSet)

	for _, rule := range ordered {
		if m.ruleMatches(tx, &rule) {
			return &Match{Rule: rule, Allocations: rule.Allocations}
		}
	}
	return nil
}

// ruleMatches checks both condition groups. Empty groups are vacuously true;
// only a non-empty ANY group demands at least one hit.
func (m *Matcher) ruleMatches(tx *models.CanonicalTransaction, rule *models.ClassificationRule) bool {
	for _, c := range rule.ConditionsIn(models.GroupAll) {
		if !evalCondition(tx, c) {
			return false
		}
	}

	anyConds := rule.ConditionsIn(models.GroupAny)
	if len(anyConds) == 0 {
		return true
	}
	for _, c := range anyConds {
		if evalCondition(tx, c) {
			return true
		}
	}
	return false
}

// orderRules filters to active rules and sorts them without mutating the
// caller's slice. The sort is stable with explicit tie-breaks so evaluation
// never depends on map-iteration nondeterminism upstream.
func orderRules(ruleSet []models.ClassificationRule) []models.ClassificationRule {
	active := make([]models.ClassificationRule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.IsActive {
			active = append(active, r)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return active
}
