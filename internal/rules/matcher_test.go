package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxledger/bank-import/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func txWith(desc string, amount string) *models.CanonicalTransaction {
	return &models.CanonicalTransaction{
		Date:        time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: models.NormalizeDescription(desc),
		Reference:   "INV-2231",
		Amount:      dec(amount),
	}
}

func activeRule(id int64, priority int, conds ...models.RuleCondition) models.ClassificationRule {
	return models.ClassificationRule{
		ID:         id,
		Name:       "rule",
		Type:       models.RuleSpend,
		Priority:   priority,
		Conditions: conds,
		Allocations: []models.Allocation{
			{AccountID: 100, Percent: dec("100")},
		},
		IsActive:  true,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
	}
}

func TestMatchPriorityFirstMatchWins(t *testing.T) {
	m := NewMatcher()
	contains := func(v string) models.RuleCondition {
		return models.RuleCondition{Group: models.GroupAll, Field: models.FieldDescription, Operator: models.OpContains, Value: v}
	}

	low := activeRule(1, 10, contains("FEE"))
	high := activeRule(2, 5, contains("FEE"))

	// Order handed in must not matter.
	match := m.Match(txWith("BANK SERVICE FEE", "-50"), []models.ClassificationRule{low, high})
	require.NotNil(t, match)
	assert.Equal(t, int64(2), match.Rule.ID)
}

func TestMatchPriorityTieBreaksByCreation(t *testing.T) {
	m := NewMatcher()
	cond := models.RuleCondition{Group: models.GroupAll, Field: models.FieldDescription, Operator: models.OpContains, Value: "FEE"}

	older := activeRule(1, 5, cond)
	newer := activeRule(2, 5, cond)

	match := m.Match(txWith("FEE", "-50"), []models.ClassificationRule{newer, older})
	require.NotNil(t, match)
	assert.Equal(t, int64(1), match.Rule.ID)
}

func TestMatchAllAnySemantics(t *testing.T) {
	m := NewMatcher()
	rule := activeRule(1, 1,
		models.RuleCondition{Group: models.GroupAll, Field: models.FieldDescription, Operator: models.OpContains, Value: "FEE"},
		models.RuleCondition{Group: models.GroupAny, Field: models.FieldDescription, Operator: models.OpContains, Value: "BANK"},
		models.RuleCondition{Group: models.GroupAny, Field: models.FieldDescription, Operator: models.OpContains, Value: "SERVICE"},
	)
	ruleSet := []models.ClassificationRule{rule}

	assert.NotNil(t, m.Match(txWith("BANK SERVICE FEE", "-10"), ruleSet))
	assert.NotNil(t, m.Match(txWith("SERVICE FEE", "-10"), ruleSet))
	// ALL holds but no ANY condition does.
	assert.Nil(t, m.Match(txWith("MONTHLY FEE", "-10"), ruleSet))
	// ANY holds but ALL does not.
	assert.Nil(t, m.Match(txWith("BANK DEPOSIT", "100"), ruleSet))
}

func TestMatchEmptyGroupsAreVacuouslyTrue(t *testing.T) {
	m := NewMatcher()

	// No conditions at all: matches everything.
	catchAll := activeRule(1, 99)
	match := m.Match(txWith("ANYTHING", "5"), []models.ClassificationRule{catchAll})
	require.NotNil(t, match)

	// Only ANY conditions, no ALL.
	anyOnly := activeRule(2, 1,
		models.RuleCondition{Group: models.GroupAny, Field: models.FieldDescription, Operator: models.OpContains, Value: "LEVY"},
	)
	assert.Nil(t, m.Match(txWith("SOMETHING ELSE", "5"), []models.ClassificationRule{anyOnly}))
	assert.NotNil(t, m.Match(txWith("CARD LEVY", "5"), []models.ClassificationRule{anyOnly}))
}

func TestMatchSkipsInactiveRules(t *testing.T) {
	m := NewMatcher()
	rule := activeRule(1, 1,
		models.RuleCondition{Group: models.GroupAll, Field: models.FieldDescription, Operator: models.OpContains, Value: "FEE"},
	)
	rule.IsActive = false

	assert.Nil(t, m.Match(txWith("FEE", "-1"), []models.ClassificationRule{rule}))
}

func TestMatchNoMatchReturnsNil(t *testing.T) {
	m := NewMatcher()
	rule := activeRule(1, 1,
		models.RuleCondition{Group: models.GroupAll, Field: models.FieldDescription, Operator: models.OpContains, Value: "NOPE"},
	)
	assert.Nil(t, m.Match(txWith("FEE", "-1"), []models.ClassificationRule{rule}))
}

func TestMatchAllocationsReturnedVerbatim(t *testing.T) {
	m := NewMatcher()
	rule := activeRule(1, 1)
	rule.Allocations = []models.Allocation{
		{AccountID: 10, Percent: dec("80"), VATCode: "STD"},
		{AccountID: 11, Percent: dec("20"), VATCode: "ZERO"},
	}

	match := m.Match(txWith("X", "-1000"), []models.ClassificationRule{rule})
	require.NotNil(t, match)
	assert.Equal(t, rule.Allocations, match.Allocations)
}

func TestEvalStringOperators(t *testing.T) {
	tx := txWith("Card Purchase Dis-Chem", "-10")

	tests := []struct {
		name string
		cond models.RuleCondition
		want bool
	}{
		{
			name: "contains case-insensitive",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpContains, Value: "dis-chem"},
			want: true,
		},
		{
			name: "not_contains",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpNotContains, Value: "CLICKS"},
			want: true,
		},
		{
			name: "equals full string",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpEquals, Value: "card purchase dis-chem"},
			want: true,
		},
		{
			name: "starts_with",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpStartsWith, Value: "CARD"},
			want: true,
		},
		{
			name: "ends_with",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpEndsWith, Value: "CHEM"},
			want: true,
		},
		{
			name: "regex",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpRegex, Value: `DIS-?CHEM`},
			want: true,
		},
		{
			name: "bad regex evaluates false not panic",
			cond: models.RuleCondition{Field: models.FieldDescription, Operator: models.OpRegex, Value: `([unclosed`},
			want: false,
		},
		{
			name: "reference field",
			cond: models.RuleCondition{Field: models.FieldReference, Operator: models.OpStartsWith, Value: "inv-"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(tx, tt.cond))
		})
	}
}

func TestEvalAmountOperators(t *testing.T) {
	outflow := txWith("X", "-150.00")
	inflow := txWith("X", "2500")

	tests := []struct {
		name string
		tx   *models.CanonicalTransaction
		cond models.RuleCondition
		want bool
	}{
		{
			name: "amount equals signed",
			tx:   outflow,
			cond: models.RuleCondition{Field: models.FieldAmount, Operator: models.OpEquals, Value: "-150.00"},
			want: true,
		},
		{
			name: "amount greater_than",
			tx:   inflow,
			cond: models.RuleCondition{Field: models.FieldAmount, Operator: models.OpGreaterThan, Value: "1000"},
			want: true,
		},
		{
			name: "amount less_than",
			tx:   outflow,
			cond: models.RuleCondition{Field: models.FieldAmount, Operator: models.OpLessThan, Value: "0"},
			want: true,
		},
		{
			name: "amount_in requires inflow",
			tx:   outflow,
			cond: models.RuleCondition{Field: models.FieldAmountIn, Operator: models.OpGreaterThan, Value: "-999"},
			want: false,
		},
		{
			name: "amount_in on inflow",
			tx:   inflow,
			cond: models.RuleCondition{Field: models.FieldAmountIn, Operator: models.OpGreaterThan, Value: "1000"},
			want: true,
		},
		{
			name: "amount_out requires outflow",
			tx:   inflow,
			cond: models.RuleCondition{Field: models.FieldAmountOut, Operator: models.OpLessThan, Value: "0"},
			want: false,
		},
		{
			name: "amount_out on outflow",
			tx:   outflow,
			cond: models.RuleCondition{Field: models.FieldAmountOut, Operator: models.OpLessThan, Value: "-100"},
			want: true,
		},
		{
			name: "unparseable value is false not error",
			tx:   inflow,
			cond: models.RuleCondition{Field: models.FieldAmount, Operator: models.OpEquals, Value: "lots"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(tt.tx, tt.cond))
		})
	}
}

func TestEvalDateOperators(t *testing.T) {
	tx := txWith("X", "-1") // dated 2025-03-15

	tests := []struct {
		name string
		cond models.RuleCondition
		want bool
	}{
		{
			name: "date equals",
			cond: models.RuleCondition{Field: models.FieldDate, Operator: models.OpEquals, Value: "2025-03-15"},
			want: true,
		},
		{
			name: "date equals other format",
			cond: models.RuleCondition{Field: models.FieldDate, Operator: models.OpEquals, Value: "15/03/2025"},
			want: true,
		},
		{
			name: "date greater_than",
			cond: models.RuleCondition{Field: models.FieldDate, Operator: models.OpGreaterThan, Value: "2025-01-01"},
			want: true,
		},
		{
			name: "date less_than fails",
			cond: models.RuleCondition{Field: models.FieldDate, Operator: models.OpLessThan, Value: "2025-01-01"},
			want: false,
		},
		{
			name: "unparseable date value is false",
			cond: models.RuleCondition{Field: models.FieldDate, Operator: models.OpEquals, Value: "soon"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(tx, tt.cond))
		})
	}
}
