package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "trims and uppercases",
			input:    "  card purchase dis-chem  ",
			expected: "CARD PURCHASE DIS-CHEM",
		},
		{
			name:     "collapses internal whitespace runs",
			input:    "EFT   PAYMENT\t\tMEDIKREDIT",
			expected: "EFT PAYMENT MEDIKREDIT",
		},
		{
			name:     "empty stays empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDescription(tt.input))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		expectErr bool
	}{
		{name: "plain signed", input: "-100.50", expected: "-100.5"},
		{name: "thousand separator with dot decimal", input: "1,234.56", expected: "1234.56"},
		{name: "comma decimal separator", input: "123,45", expected: "123.45"},
		{name: "apostrophe thousands", input: "12'345.00", expected: "12345"},
		{name: "currency symbol", input: "R 1 500.00", expected: "1500"},
		{name: "accounting parentheses", input: "(250.00)", expected: "-250"},
		{name: "garbage", input: "n/a", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, _ := decimal.NewFromString(tt.expected)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestBatchAdvanceTo(t *testing.T) {
	b := &ImportBatch{Status: BatchImported}

	require.NoError(t, b.AdvanceTo(BatchClassifiedPartial))
	assert.Equal(t, BatchClassifiedPartial, b.Status)

	require.NoError(t, b.AdvanceTo(BatchClassifiedComplete))
	require.NoError(t, b.AdvanceTo(BatchPostedToLedger))

	// Backwards moves are rejected and do not change the status.
	err := b.AdvanceTo(BatchImported)
	require.Error(t, err)
	assert.Equal(t, BatchPostedToLedger, b.Status)

	// Re-asserting the current status is fine.
	require.NoError(t, b.AdvanceTo(BatchPostedToLedger))
}

func TestConditionsIn(t *testing.T) {
	rule := &ClassificationRule{
		Conditions: []RuleCondition{
			{Group: GroupAll, Field: FieldDescription, Operator: OpContains, Value: "FEE"},
			{Group: GroupAny, Field: FieldDescription, Operator: OpContains, Value: "BANK"},
			{Group: GroupAny, Field: FieldDescription, Operator: OpContains, Value: "SERVICE"},
		},
	}

	assert.Len(t, rule.ConditionsIn(GroupAll), 1)
	assert.Len(t, rule.ConditionsIn(GroupAny), 2)
	assert.Empty(t, (&ClassificationRule{}).ConditionsIn(GroupAll))
}
