package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxledger/bank-import/internal/importerr"
	"rxledger/bank-import/internal/models"
)

func validRule() models.ClassificationRule {
	return models.ClassificationRule{
		Name: "bank charges",
		Type: models.RuleSpend,
		Conditions: []models.RuleCondition{
			{Group: models.GroupAll, Field: models.FieldDescription, Operator: models.OpContains, Value: "FEE"},
		},
		Allocations: []models.Allocation{
			{AccountID: 100, Percent: dec("80"), VATCode: "STD"},
			{AccountID: 101, Percent: dec("20"), VATCode: "STD"},
		},
		IsActive: true,
	}
}

func TestValidateRuleOK(t *testing.T) {
	r := validRule()
	require.NoError(t, ValidateRule(&r))
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ClassificationRule)
		reason string
	}{
		{
			name:   "percentages must sum to 100",
			mutate: func(r *models.ClassificationRule) { r.Allocations[0].Percent = dec("70") },
			reason: "sum to 90",
		},
		{
			name:   "zero percent allocation",
			mutate: func(r *models.ClassificationRule) { r.Allocations[0].Percent = dec("0") },
			reason: "must be positive",
		},
		{
			name:   "allocation without account",
			mutate: func(r *models.ClassificationRule) { r.Allocations[0].AccountID = 0 },
			reason: "missing an account",
		},
		{
			name:   "active rule without allocations",
			mutate: func(r *models.ClassificationRule) { r.Allocations = nil },
			reason: "at least one allocation",
		},
		{
			name:   "unknown rule type",
			mutate: func(r *models.ClassificationRule) { r.Type = "lend" },
			reason: "unknown rule type",
		},
		{
			name: "unknown field",
			mutate: func(r *models.ClassificationRule) {
				r.Conditions[0].Field = "payee"
			},
			reason: "unknown condition field",
		},
		{
			name: "unknown operator",
			mutate: func(r *models.ClassificationRule) {
				r.Conditions[0].Operator = "fuzzy"
			},
			reason: "unknown condition operator",
		},
		{
			name: "unknown group",
			mutate: func(r *models.ClassificationRule) {
				r.Conditions[0].Group = "SOME"
			},
			reason: "unknown condition group",
		},
		{
			name: "string operator on numeric field",
			mutate: func(r *models.ClassificationRule) {
				r.Conditions[0] = models.RuleCondition{
					Group: models.GroupAll, Field: models.FieldAmount, Operator: models.OpContains, Value: "5",
				}
			},
			reason: "does not apply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)

			err := ValidateRule(&r)
			require.Error(t, err)
			var vErr *importerr.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Reason, tt.reason)
		})
	}
}

func TestValidateInactiveRuleSkipsAllocationChecks(t *testing.T) {
	// Soft-deleted rules keep whatever allocations they had.
	r := validRule()
	r.IsActive = false
	r.Allocations = nil
	require.NoError(t, ValidateRule(&r))
}
