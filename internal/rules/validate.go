package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/importerr"
	"rxledger/bank-import/internal/models"
)

var hundred = decimal.NewFromInt(100)

var validFields = map[models.ConditionField]bool{
	models.FieldDescription: true,
	models.FieldReference:   true,
	models.FieldAmount:      true,
	models.FieldAmountIn:    true,
	models.FieldAmountOut:   true,
	models.FieldDate:        true,
}

var validOperators = map[models.ConditionOperator]bool{
	models.OpContains:    true,
	models.OpNotContains: true,
	models.OpEquals:      true,
	models.OpStartsWith:  true,
	models.OpEndsWith:    true,
	models.OpGreaterThan: true,
	models.OpLessThan:    true,
	models.OpRegex:       true,
}

// stringOnlyOperators cannot apply to numeric or date fields.
var stringOnlyOperators = map[models.ConditionOperator]bool{
	models.OpContains:    true,
	models.OpNotContains: true,
	models.OpStartsWith:  true,
	models.OpEndsWith:    true,
	models.OpRegex:       true,
}

// ValidateRule enforces the authoring-time invariants: allocation percentages
// of an active rule sum to exactly 100, every condition references a known
// field and operator, and operators fit their field. Matching never
// re-validates; a rule that got past authoring is trusted at run time.
func ValidateRule(rule *models.ClassificationRule) error {
	fail := func(reason string) error {
		return &importerr.ValidationError{Rule: rule.Name, Reason: reason}
	}

	switch rule.Type {
	case models.RuleReceive, models.RuleSpend, models.RuleTransfer:
	default:
		return fail(fmt.Sprintf("unknown rule type %q", rule.Type))
	}

	for _, c := range rule.Conditions {
		if c.Group != models.GroupAll && c.Group != models.GroupAny {
			return fail(fmt.Sprintf("unknown condition group %q", c.Group))
		}
		if !validFields[c.Field] {
			return fail(fmt.Sprintf("unknown condition field %q", c.Field))
		}
		if !validOperators[c.Operator] {
			return fail(fmt.Sprintf("unknown condition operator %q", c.Operator))
		}
		if c.Field != models.FieldDescription && c.Field != models.FieldReference && stringOnlyOperators[c.Operator] {
			return fail(fmt.Sprintf("operator %q does not apply to field %q", c.Operator, c.Field))
		}
	}

	if !rule.IsActive {
		return nil
	}

	if len(rule.Allocations) == 0 {
		return fail("active rule needs at least one allocation")
	}

	total := decimal.Zero
	for _, a := range rule.Allocations {
		if a.Percent.IsNegative() || a.Percent.IsZero() {
			return fail(fmt.Sprintf("allocation percent %s must be positive", a.Percent))
		}
		if a.AccountID == 0 {
			return fail("allocation is missing an account")
		}
		total = total.Add(a.Percent)
	}
	if !total.Equal(hundred) {
		return fail(fmt.Sprintf("allocation percentages sum to %s, expected exactly 100", total))
	}

	return nil
}
