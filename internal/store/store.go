// Package store defines the persistence ports of the import pipeline and
// their implementations. The orchestrator and duplicate detector only ever
// see these interfaces; tests inject the in-memory mock and production wires
// the SQLite store.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/models"
)

// BatchStore manages import batch records.
type BatchStore interface {
	// CreateBatch persists a new batch and fills in its ID.
	CreateBatch(ctx context.Context, batch *models.ImportBatch) error
	GetBatch(ctx context.Context, id int64) (*models.ImportBatch, error)
	UpdateBatch(ctx context.Context, batch *models.ImportBatch) error
}

// TransactionStore appends and updates persisted transactions, including the
// index-backed lookups the duplicate detector runs on.
type TransactionStore interface {
	// InsertTransaction persists a new transaction and fills in its ID.
	InsertTransaction(ctx context.Context, tx *models.PersistedTransaction) error
	UpdateTransaction(ctx context.Context, tx *models.PersistedTransaction) error
	GetTransaction(ctx context.Context, id int64) (*models.PersistedTransaction, error)
	TransactionsByBatch(ctx context.Context, batchID int64) ([]models.PersistedTransaction, error)

	// ByExternalID and ByDateAmount satisfy dedup.TransactionLookup.
	ByExternalID(ctx context.Context, bankAccountID int64, externalID string) ([]models.PersistedTransaction, error)
	ByDateAmount(ctx context.Context, bankAccountID int64, date time.Time, amount decimal.Decimal) ([]models.PersistedTransaction, error)
}

// RuleSource returns the active classification rules for a pharmacy. The
// import core never creates, edits or deletes rules.
type RuleSource interface {
	ActiveRules(ctx context.Context, pharmacyID int64) ([]models.ClassificationRule, error)
}

// AccountSource reads a pharmacy's chart of accounts. AI responses are
// untrusted and get checked against it; the full listing feeds the AI prompt.
type AccountSource interface {
	AccountExists(ctx context.Context, pharmacyID, accountID int64) (bool, error)
	ListAccounts(ctx context.Context, pharmacyID int64) ([]models.LedgerAccount, error)
}

// SuggestionStore manages AI suggestion records.
type SuggestionStore interface {
	// CreateSuggestion persists a new suggestion and fills in its ID.
	CreateSuggestion(ctx context.Context, s *models.AISuggestion) error
	GetSuggestion(ctx context.Context, id int64) (*models.AISuggestion, error)
	UpdateSuggestion(ctx context.Context, s *models.AISuggestion) error
}

// LedgerStore appends ledger-entry intents for the bookkeeping collaborator.
type LedgerStore interface {
	// AppendLedgerEntries persists the entries and fills in their IDs.
	AppendLedgerEntries(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error)
	LedgerEntriesByTransaction(ctx context.Context, transactionID int64) ([]models.LedgerEntry, error)
}

// Store is the full persistence surface the orchestrator needs.
type Store interface {
	BatchStore
	TransactionStore
	RuleSource
	AccountSource
	SuggestionStore
	LedgerStore
}

// amountKey canonicalizes a decimal for exact-match storage and lookup.
func amountKey(d decimal.Decimal) string {
	return d.StringFixed(4)
}

// dateKey canonicalizes a calendar date for storage and lookup.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
