package models

import (
	"fmt"
	"time"
)

// BatchStatus is the lifecycle stage of an import batch. Status only ever
// advances forward within a batch's life.
type BatchStatus string

const (
	BatchImported           BatchStatus = "IMPORTED"
	BatchClassifiedPartial  BatchStatus = "CLASSIFIED_PARTIAL"
	BatchClassifiedComplete BatchStatus = "CLASSIFIED_COMPLETE"
	BatchPostedToLedger     BatchStatus = "POSTED_TO_LEDGER"
)

// batchStatusRank orders statuses for the forward-only transition check.
var batchStatusRank = map[BatchStatus]int{
	BatchImported:           0,
	BatchClassifiedPartial:  1,
	BatchClassifiedComplete: 2,
	BatchPostedToLedger:     3,
}

// ImportBatch is one upload event for one bank account.
type ImportBatch struct {
	ID            int64
	BankAccountID int64
	PharmacyID    int64
	FileName      string
	PeriodStart   *time.Time // Min transaction date in the batch
	PeriodEnd     *time.Time // Max transaction date in the batch
	Status        BatchStatus
	UploadedAt    time.Time
}

// AdvanceTo moves the batch to the given status. Moving backwards is
// rejected; re-asserting the current status is a no-op.
func (b *ImportBatch) AdvanceTo(next BatchStatus) error {
	cur, ok := batchStatusRank[b.Status]
	if !ok {
		return fmt.Errorf("unknown batch status %q", b.Status)
	}
	target, ok := batchStatusRank[next]
	if !ok {
		return fmt.Errorf("unknown batch status %q", next)
	}
	if target < cur {
		return fmt.Errorf("batch status cannot move backwards from %s to %s", b.Status, next)
	}
	b.Status = next
	return nil
}
