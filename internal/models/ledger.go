package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntrySource tags where a ledger posting came from so the books can
// distinguish rule-derived, AI-derived and manual postings.
type EntrySource string

const (
	SourceRule   EntrySource = "rule"
	SourceAI     EntrySource = "ai"
	SourceManual EntrySource = "manual"
)

// LedgerAccount is one entry of a pharmacy's chart of accounts. The chart is
// owned externally; this core only reads it for validation and AI prompts.
type LedgerAccount struct {
	ID         int64
	PharmacyID int64
	Name       string
}

// LedgerEntry is a proposed double-entry posting emitted for the external
// ledger collaborator. The actual bookkeeping (balances, periods) happens
// there, not here.
type LedgerEntry struct {
	ID            int64
	TransactionID int64
	Date          time.Time
	Amount        decimal.Decimal // Positive magnitude of the allocated share
	AccountID     int64
	VATCode       string
	Type          RuleType
	Source        EntrySource
}
