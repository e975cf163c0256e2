// Package models provides the data structures used throughout the application.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalTransaction is one parsed bank statement line, normalized out of
// whatever dialect the source file used. It is never mutated after the parser
// emits it.
type CanonicalTransaction struct {
	RowNumber      int              `csv:"RowNumber"`      // 1-based data-row position in the source file
	Date           time.Time        `csv:"Date"`           // Calendar date, UTC midnight, no time component
	Description    string           `csv:"Description"`    // Trimmed, whitespace-collapsed, upper-cased
	RawDescription string           `csv:"RawDescription"` // Original description for audit/display
	Reference      string           `csv:"Reference"`      // Optional bank reference
	Amount         decimal.Decimal  `csv:"Amount"`         // Signed; positive = inflow, negative = outflow
	Balance        *decimal.Decimal `csv:"Balance"`        // Optional running balance
	ExternalID     string           `csv:"ExternalID"`     // Optional bank-supplied unique transaction id
}

// IsInflow returns true when money came into the account.
func (t *CanonicalTransaction) IsInflow() bool {
	return t.Amount.IsPositive()
}

// IsOutflow returns true when money left the account.
func (t *CanonicalTransaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// ClassificationStatus tracks how a persisted transaction was classified.
type ClassificationStatus string

const (
	StatusUnclassified   ClassificationStatus = "unclassified"
	StatusRuleClassified ClassificationStatus = "rule_classified"
	StatusAIClassified   ClassificationStatus = "ai_classified"
	StatusUserOverride   ClassificationStatus = "user_override"
)

// PersistedTransaction is a CanonicalTransaction once stored, extended with
// classification state and duplicate-review flags.
type PersistedTransaction struct {
	CanonicalTransaction

	ID                   int64
	BatchID              int64
	BankAccountID        int64
	Status               ClassificationStatus
	ClassifiedAt         *time.Time
	MatchedRuleID        *int64
	AISuggestionID       *int64
	LedgerEntryID        *int64
	SuspectedDuplicateOf *int64 // Existing transaction this row may duplicate
	DuplicateReason      string
}

// NormalizeDescription trims, collapses internal whitespace runs to a single
// space and upper-cases the input. The raw value is kept separately on the
// transaction.
func NormalizeDescription(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ParseAmount parses a string amount into a decimal, tolerating the formats
// seen in real bank exports: currency symbols, thousand separators,
// accounting-style parentheses for negatives and comma decimal separators.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	amount := strings.TrimSpace(amountStr)

	// Accounting notation: (123.45) means -123.45
	negative := false
	if strings.HasPrefix(amount, "(") && strings.HasSuffix(amount, ")") {
		negative = true
		amount = amount[1 : len(amount)-1]
	}

	for _, sym := range []string{"ZAR", "CHF", "EUR", "USD", "GBP", "R", "$", "€", "£"} {
		amount = strings.ReplaceAll(amount, sym, "")
	}
	amount = strings.ReplaceAll(amount, " ", "")
	amount = strings.ReplaceAll(amount, "'", "")

	// A comma is a decimal separator only when it is not a thousands
	// separator ("1,234.56" keeps the dot, "123,45" becomes "123.45").
	if strings.Contains(amount, ",") && !strings.Contains(amount, ".") {
		amount = strings.ReplaceAll(amount, ",", ".")
	} else {
		amount = strings.ReplaceAll(amount, ",", "")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		dec = dec.Neg()
	}
	return dec, nil
}
