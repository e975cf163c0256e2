// Package rules evaluates classification rules against canonical
// transactions. The matcher is a pure interpreter over rule data; nothing in
// a rule ever executes.
package rules

import (
	"regexp"
	"strings"

	"rxledger/bank-import/internal/dateutils"
	"rxledger/bank-import/internal/models"
)

// evalCondition reports whether a single condition holds for the
// transaction. Conditions never error out of the matcher: an unusable value
// (bad regex, unparseable number or date, sign mismatch) simply evaluates
// false.
func evalCondition(tx *models.CanonicalTransaction, c models.RuleCondition) bool {
	switch c.Field {
	case models.FieldDescription:
		return evalString(tx.Description, c.Operator, c.Value)
	case models.FieldReference:
		return evalString(tx.Reference, c.Operator, c.Value)
	case models.FieldAmount:
		return evalAmount(tx, c, false, false)
	case models.FieldAmountIn:
		return evalAmount(tx, c, true, false)
	case models.FieldAmountOut:
		return evalAmount(tx, c, false, true)
	case models.FieldDate:
		return evalDate(tx, c)
	default:
		return false
	}
}

// evalString applies a string operator case-insensitively.
func evalString(fieldValue string, op models.ConditionOperator, condValue string) bool {
	haystack := strings.ToUpper(fieldValue)
	needle := strings.ToUpper(condValue)

	switch op {
	case models.OpContains:
		return strings.Contains(haystack, needle)
	case models.OpNotContains:
		return !strings.Contains(haystack, needle)
	case models.OpEquals:
		return haystack == needle
	case models.OpStartsWith:
		return strings.HasPrefix(haystack, needle)
	case models.OpEndsWith:
		return strings.HasSuffix(haystack, needle)
	case models.OpRegex:
		re, err := regexp.Compile("(?i)" + condValue)
		if err != nil {
			return false
		}
		return re.MatchString(fieldValue)
	default:
		return false
	}
}

func evalAmount(tx *models.CanonicalTransaction, c models.RuleCondition, requireIn, requireOut bool) bool {
	if requireIn && !tx.IsInflow() {
		return false
	}
	if requireOut && !tx.IsOutflow() {
		return false
	}

	value, err := models.ParseAmount(c.Value)
	if err != nil {
		return false
	}

	switch c.Operator {
	case models.OpEquals:
		return tx.Amount.Equal(value)
	case models.OpGreaterThan:
		return tx.Amount.GreaterThan(value)
	case models.OpLessThan:
		return tx.Amount.LessThan(value)
	default:
		return false
	}
}

func evalDate(tx *models.CanonicalTransaction, c models.RuleCondition) bool {
	value, err := dateutils.ParseDate(c.Value)
	if err != nil {
		return false
	}

	cmp := dateutils.CompareDates(tx.Date, value)
	switch c.Operator {
	case models.OpEquals:
		return cmp == 0
	case models.OpGreaterThan:
		return cmp > 0
	case models.OpLessThan:
		return cmp < 0
	default:
		return false
	}
}
