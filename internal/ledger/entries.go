// Package ledger turns rule matches and accepted suggestions into
// ledger-entry intents for the external bookkeeping collaborator.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/models"
)

var hundred = decimal.NewFromInt(100)

// EntriesForAllocations emits one entry per allocation, proportioned by
// percent against the transaction's magnitude and rounded to cents. The last
// allocation absorbs the rounding remainder so the entries always sum back to
// the original magnitude exactly.
func EntriesForAllocations(tx *models.PersistedTransaction, allocations []models.Allocation, entryType models.RuleType, source models.EntrySource) ([]models.LedgerEntry, error) {
	if len(allocations) == 0 {
		return nil, fmt.Errorf("transaction %d: no allocations to post", tx.ID)
	}

	magnitude := tx.Amount.Abs()
	entries := make([]models.LedgerEntry, 0, len(allocations))
	posted := decimal.Zero

	for i, alloc := range allocations {
		var share decimal.Decimal
		if i == len(allocations)-1 {
			share = magnitude.Sub(posted)
		} else {
			share = magnitude.Mul(alloc.Percent).Div(hundred).Round(2)
			posted = posted.Add(share)
		}

		entries = append(entries, models.LedgerEntry{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Amount:        share,
			AccountID:     alloc.AccountID,
			VATCode:       alloc.VATCode,
			Type:          entryType,
			Source:        source,
		})
	}

	return entries, nil
}

// EntryForAccount posts the full transaction magnitude to a single account.
// Accepted AI suggestions and manual overrides go through here.
func EntryForAccount(tx *models.PersistedTransaction, accountID int64, entryType models.RuleType, source models.EntrySource) models.LedgerEntry {
	return models.LedgerEntry{
		TransactionID: tx.ID,
		Date:          tx.Date,
		Amount:        tx.Amount.Abs(),
		AccountID:     accountID,
		Type:          entryType,
		Source:        source,
	}
}
