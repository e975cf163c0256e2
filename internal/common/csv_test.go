package common

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxledger/bank-import/internal/models"
)

func TestWriteTransactionsCSV(t *testing.T) {
	bal := decimal.RequireFromString("1234.50")
	dup := int64(7)
	txns := []models.PersistedTransaction{
		{
			CanonicalTransaction: models.CanonicalTransaction{
				RowNumber:      1,
				Date:           time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
				Description:    "BANK SERVICE FEE",
				RawDescription: "Bank  Service   Fee",
				Reference:      "FEE0325",
				Amount:         decimal.RequireFromString("-450"),
				Balance:        &bal,
				ExternalID:     "T100",
			},
			Status: models.StatusRuleClassified,
		},
		{
			CanonicalTransaction: models.CanonicalTransaction{
				RowNumber:   2,
				Date:        time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
				Description: "CARD SETTLEMENT",
				Amount:      decimal.RequireFromString("1000"),
			},
			Status:               models.StatusUnclassified,
			SuspectedDuplicateOf: &dup,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, txns))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "RowNumber,Date,Description,RawDescription,Reference,Amount,Balance,ExternalID,Status,DuplicateOf", lines[0])
	assert.Contains(t, lines[1], "2025-03-01")
	assert.Contains(t, lines[1], "-450.00")
	assert.Contains(t, lines[1], "1234.50")
	assert.Contains(t, lines[1], "rule_classified")
	assert.Contains(t, lines[2], "1000.00")
	assert.True(t, strings.HasSuffix(lines[2], ",7"), "suspected duplicate id in last column: %s", lines[2])
}

func TestWriteTransactionsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1, "header only")
}
