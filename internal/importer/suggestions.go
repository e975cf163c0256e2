package importer

import (
	"context"
	"fmt"
	"time"

	"rxledger/bank-import/internal/ledger"
	"rxledger/bank-import/internal/logging"
	"rxledger/bank-import/internal/models"
	"rxledger/bank-import/internal/suggest"
)

// RowError is a per-row failure from a batch-wide pass. The rest of the batch
// is unaffected. Rows that failed before they were persisted carry only a
// RowNumber; persisted ones carry the TransactionID.
type RowError struct {
	RowNumber     int
	TransactionID int64
	Err           error
}

func (e RowError) Error() string {
	if e.TransactionID != 0 {
		return fmt.Sprintf("transaction %d: %v", e.TransactionID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.RowNumber, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// SuggestSummary describes one AI-suggestion pass over a batch.
type SuggestSummary struct {
	TotalLines        int
	Suggested         int
	AlreadyClassified int
	Errors            []RowError
}

// SuggestBatch asks the suggester to propose a classification for every
// unclassified transaction of the batch. Provider failures and invalid
// responses are per-row errors; valid proposals leave the transaction
// ai_classified with a pending suggestion attached.
func (o *Orchestrator) SuggestBatch(ctx context.Context, batchID int64) (*SuggestSummary, error) {
	if o.suggester == nil {
		return nil, fmt.Errorf("no suggestion provider configured")
	}

	batch, err := o.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	chart, err := o.store.ListAccounts(ctx, batch.PharmacyID)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	accounts := make([]suggest.AccountOption, 0, len(chart))
	for _, a := range chart {
		accounts = append(accounts, suggest.AccountOption{ID: a.ID, Name: a.Name})
	}

	txns, err := o.store.TransactionsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading batch transactions: %w", err)
	}

	summary := &SuggestSummary{TotalLines: len(txns)}

	for i := range txns {
		tx := &txns[i]
		if tx.Status != models.StatusUnclassified {
			summary.AlreadyClassified++
			continue
		}
		if ctx.Err() != nil {
			break
		}

		proposal, err := o.suggester.Suggest(ctx, tx, accounts)
		if err != nil {
			summary.Errors = append(summary.Errors, RowError{TransactionID: tx.ID, Err: err})
			o.log.WithError(err).Warn("Suggestion failed",
				logging.Field{Key: logging.FieldTransaction, Value: tx.ID})
			continue
		}

		// The suggester already validated against the offered chart; the
		// store check guards against the chart changing underneath us.
		ok, err := o.store.AccountExists(ctx, batch.PharmacyID, proposal.AccountID)
		if err != nil {
			summary.Errors = append(summary.Errors, RowError{TransactionID: tx.ID, Err: err})
			continue
		}
		if !ok {
			summary.Errors = append(summary.Errors, RowError{
				TransactionID: tx.ID,
				Err:           fmt.Errorf("suggested account %d does not exist", proposal.AccountID),
			})
			continue
		}

		sg := &models.AISuggestion{
			TransactionID: tx.ID,
			AccountID:     proposal.AccountID,
			Description:   proposal.Rationale,
			Type:          proposal.Type,
			Confidence:    proposal.Confidence,
			Status:        models.SuggestionPending,
			CreatedAt:     time.Now().UTC(),
		}
		if err := o.store.CreateSuggestion(ctx, sg); err != nil {
			summary.Errors = append(summary.Errors, RowError{TransactionID: tx.ID, Err: err})
			continue
		}

		suggestionID := sg.ID
		tx.Status = models.StatusAIClassified
		tx.AISuggestionID = &suggestionID
		if err := o.store.UpdateTransaction(ctx, tx); err != nil {
			summary.Errors = append(summary.Errors, RowError{TransactionID: tx.ID, Err: err})
			continue
		}
		summary.Suggested++
	}

	return summary, nil
}

// AcceptSuggestion finalizes a pending suggestion: one full-amount ledger
// entry is posted to the suggested account, or to accountOverride when given.
// The transaction becomes user_override and the suggestion is immutable
// afterwards.
func (o *Orchestrator) AcceptSuggestion(ctx context.Context, suggestionID int64, accountOverride *int64) error {
	sg, tx, batch, err := o.loadPendingSuggestion(ctx, suggestionID)
	if err != nil {
		return err
	}

	accountID := sg.AccountID
	if accountOverride != nil {
		accountID = *accountOverride
	}
	ok, err := o.store.AccountExists(ctx, batch.PharmacyID, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %d does not exist for pharmacy %d", accountID, batch.PharmacyID)
	}

	entry := ledger.EntryForAccount(tx, accountID, sg.Type, models.SourceAI)
	saved, err := o.store.AppendLedgerEntries(ctx, []models.LedgerEntry{entry})
	if err != nil {
		return fmt.Errorf("posting ledger entry: %w", err)
	}

	now := time.Now().UTC()
	sg.Status = models.SuggestionAccepted
	sg.ResolvedAt = &now
	if err := o.store.UpdateSuggestion(ctx, sg); err != nil {
		return err
	}

	tx.Status = models.StatusUserOverride
	tx.ClassifiedAt = &now
	if len(saved) > 0 {
		entryID := saved[0].ID
		tx.LedgerEntryID = &entryID
	}
	if err := o.store.UpdateTransaction(ctx, tx); err != nil {
		return err
	}

	o.log.Info("Suggestion accepted",
		logging.Field{Key: logging.FieldSuggestion, Value: sg.ID},
		logging.Field{Key: logging.FieldTransaction, Value: tx.ID},
		logging.Field{Key: "account_id", Value: accountID})
	return nil
}

// RejectSuggestion marks the suggestion rejected and returns the transaction
// to unclassified, leaving it eligible for rule matching or a fresh
// suggestion.
func (o *Orchestrator) RejectSuggestion(ctx context.Context, suggestionID int64) error {
	sg, tx, _, err := o.loadPendingSuggestion(ctx, suggestionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sg.Status = models.SuggestionRejected
	sg.ResolvedAt = &now
	if err := o.store.UpdateSuggestion(ctx, sg); err != nil {
		return err
	}

	tx.Status = models.StatusUnclassified
	tx.AISuggestionID = nil
	if err := o.store.UpdateTransaction(ctx, tx); err != nil {
		return err
	}

	o.log.Info("Suggestion rejected",
		logging.Field{Key: logging.FieldSuggestion, Value: sg.ID},
		logging.Field{Key: logging.FieldTransaction, Value: tx.ID})
	return nil
}

func (o *Orchestrator) loadPendingSuggestion(ctx context.Context, suggestionID int64) (*models.AISuggestion, *models.PersistedTransaction, *models.ImportBatch, error) {
	sg, err := o.store.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if sg.IsResolved() {
		return nil, nil, nil, fmt.Errorf("suggestion %d is already %s", sg.ID, sg.Status)
	}

	tx, err := o.store.GetTransaction(ctx, sg.TransactionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if tx.Status != models.StatusAIClassified {
		return nil, nil, nil, fmt.Errorf("transaction %d is %s, not awaiting suggestion review", tx.ID, tx.Status)
	}
	if tx.AISuggestionID == nil || *tx.AISuggestionID != sg.ID {
		return nil, nil, nil, fmt.Errorf("suggestion %d is not the pending suggestion of transaction %d", sg.ID, tx.ID)
	}

	batch, err := o.store.GetBatch(ctx, tx.BatchID)
	if err != nil {
		return nil, nil, nil, err
	}
	return sg, tx, batch, nil
}
