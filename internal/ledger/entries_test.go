package ledger

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

func txOf(amount string) *models.PersistedTransaction {
	return &models.PersistedTransaction{
		CanonicalTransaction: models.CanonicalTransaction{
			Date:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Amount: dec(amount),
		},
		ID: 9,
	}
}

func TestEntriesForAllocationsSplit(t *testing.T) {
	// 80/20 split of a -1000.00 outflow: 800.00 and 200.00, summing back to
	// the original magnitude.
	entries, err := EntriesForAllocations(txOf("-1000.00"), []models.Allocation{
		{AccountID: 10, Percent: dec("80"), VATCode: "STD"},
		{AccountID: 11, Percent: dec("20"), VATCode: "ZERO"},
	}, models.RuleSpend, models.SourceRule)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "800", entries[0].Amount.String())
	assert.Equal(t, int64(10), entries[0].AccountID)
	assert.Equal(t, "STD", entries[0].VATCode)
	assert.Equal(t, "200", entries[1].Amount.String())
	assert.Equal(t, models.SourceRule, entries[1].Source)
	assert.Equal(t, models.RuleSpend, entries[1].Type)
}

func TestEntriesForAllocationsRoundingRemainder(t *testing.T) {
	// Three-way third split of 100.00 cannot round evenly; the last
	// allocation takes the remainder.
	third := dec("100").Div(decimal.NewFromInt(3)).Round(10)
	entries, err := EntriesForAllocations(txOf("100.00"), []models.Allocation{
		{AccountID: 1, Percent: third},
		{AccountID: 2, Percent: third},
		{AccountID: 3, Percent: hundred.Sub(third).Sub(third)},
	}, models.RuleReceive, models.SourceRule)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	assert.True(t, total.Equal(dec("100")), "entries sum to %s", total)
	assert.Equal(t, "33.33", entries[0].Amount.StringFixed(2))
	assert.Equal(t, "33.34", entries[2].Amount.StringFixed(2))
}

func TestEntriesForAllocationsEmpty(t *testing.T) {
	_, err := EntriesForAllocations(txOf("-5"), nil, models.RuleSpend, models.SourceRule)
	require.Error(t, err)
}

func TestEntryForAccount(t *testing.T) {
	entry := EntryForAccount(txOf("-320.50"), 77, models.RuleSpend, models.SourceAI)
	assert.Equal(t, "320.5", entry.Amount.String())
	assert.Equal(t, int64(77), entry.AccountID)
	assert.Equal(t, models.SourceAI, entry.Source)
	assert.Equal(t, int64(9), entry.TransactionID)
}
