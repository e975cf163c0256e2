// Package dedup classifies incoming transactions against previously imported
// ones for the same bank account.
//
// Three tiers: identity match on the bank-supplied external id (certain),
// exact (date, amount, description) match from an earlier batch (certain),
// and (date, amount) match with a differing description (suspected, still
// inserted). Verdicts are control-flow values, never errors.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/models"
)

// VerdictKind is the outcome of duplicate classification.
type VerdictKind int

const (
	New VerdictKind = iota
	CertainDuplicate
	SuspectedDuplicate
)

func (k VerdictKind) String() string {
	switch k {
	case New:
		return "new"
	case CertainDuplicate:
		return "certain_duplicate"
	case SuspectedDuplicate:
		return "suspected_duplicate"
	default:
		return "unknown"
	}
}

// Verdict carries the classification and, for duplicates, which existing
// transaction it matched and why.
type Verdict struct {
	Kind       VerdictKind
	ExistingID int64
	Reason     string
}

// TransactionLookup is the persistence capability the detector depends on.
// Both lookups must be index-backed on the storage side.
type TransactionLookup interface {
	// ByExternalID finds transactions for the account with the given
	// bank-supplied id.
	ByExternalID(ctx context.Context, bankAccountID int64, externalID string) ([]models.PersistedTransaction, error)
	// ByDateAmount finds transactions for the account on the given calendar
	// date with the given signed amount.
	ByDateAmount(ctx context.Context, bankAccountID int64, date time.Time, amount decimal.Decimal) ([]models.PersistedTransaction, error)
}

// Detector classifies one transaction at a time. It holds no transaction
// state of its own; prior transactions come in through the lookup port.
type Detector struct {
	lookup TransactionLookup
}

// NewDetector creates a detector over the given lookup port.
func NewDetector(lookup TransactionLookup) *Detector {
	return &Detector{lookup: lookup}
}

// Classify runs the tiers in order. The lookup port must already see rows
// accepted earlier in the same upload, so identical rows within one file
// resolve against whichever row was processed first.
func (d *Detector) Classify(ctx context.Context, tx models.CanonicalTransaction, bankAccountID int64) (Verdict, error) {
	// Tier 1: identity via the bank's own transaction id. Authoritative.
	if tx.ExternalID != "" {
		existing, err := d.lookup.ByExternalID(ctx, bankAccountID, tx.ExternalID)
		if err != nil {
			return Verdict{}, fmt.Errorf("external id lookup: %w", err)
		}
		if len(existing) > 0 {
			return Verdict{
				Kind:       CertainDuplicate,
				ExistingID: existing[0].ID,
				Reason:     fmt.Sprintf("external id %q already imported", tx.ExternalID),
			}, nil
		}
		return Verdict{Kind: New}, nil
	}

	candidates, err := d.lookup.ByDateAmount(ctx, bankAccountID, tx.Date, tx.Amount)
	if err != nil {
		return Verdict{}, fmt.Errorf("date/amount lookup: %w", err)
	}

	// Tier 2: exact composite match. Re-uploaded overlapping statements
	// must not double-post; identical rows within the same upload count as
	// duplicates of whichever row landed first.
	for _, c := range candidates {
		if c.Description == tx.Description {
			return Verdict{
				Kind:       CertainDuplicate,
				ExistingID: c.ID,
				Reason:     "identical date, amount and description already imported",
			}, nil
		}
	}

	// Tier 3: same date and amount, different description. Flag for review
	// but never block the import; equality-only dedupe used to discard
	// legitimate transactions that merely shared date and amount.
	if len(candidates) > 0 {
		c := candidates[0]
		return Verdict{
			Kind:       SuspectedDuplicate,
			ExistingID: c.ID,
			Reason: fmt.Sprintf("same date %s and amount %s as transaction %d, but description %q differs from %q",
				tx.Date.Format("2006-01-02"), tx.Amount.StringFixed(2), c.ID, tx.Description, c.Description),
		}, nil
	}

	return Verdict{Kind: New}, nil
}
