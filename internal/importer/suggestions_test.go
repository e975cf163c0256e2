package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxledger/bank-import/internal/models"
	"rxledger/bank-import/internal/store"
	"rxledger/bank-import/internal/suggest"
)

func suggestFixture(t *testing.T, proposals ...*suggest.Proposal) (*Orchestrator, *store.Mock, int64) {
	t.Helper()
	mock := store.NewMock()
	mock.SeedAccount(testPharmacy, 10, "Bank charges")
	mock.SeedAccount(testPharmacy, 11, "Stock purchases")

	o := New(mock, &suggest.MockSuggester{Proposals: proposals}, nil)
	confirm, err := o.Confirm(context.Background(), request("Date,Description,Amount\n2025-03-01,ODD CHARGE,-75.00\n"))
	require.NoError(t, err)
	return o, mock, confirm.BatchID
}

func pendingSuggestionID(t *testing.T, mock *store.Mock, batchID int64) (int64, int64) {
	t.Helper()
	txns, err := mock.TransactionsByBatch(context.Background(), batchID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.NotNil(t, txns[0].AISuggestionID)
	return *txns[0].AISuggestionID, txns[0].ID
}

func TestSuggestBatchAttachesPendingSuggestion(t *testing.T) {
	o, mock, batchID := suggestFixture(t, &suggest.Proposal{
		AccountID: 10, Type: models.RuleSpend, Confidence: 0.8, Rationale: "Looks like a bank fee",
	})
	ctx := context.Background()

	summary, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalLines)
	assert.Equal(t, 1, summary.Suggested)
	assert.Empty(t, summary.Errors)

	sgID, txID := pendingSuggestionID(t, mock, batchID)
	sg, err := mock.GetSuggestion(ctx, sgID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionPending, sg.Status)
	assert.Equal(t, txID, sg.TransactionID)
	assert.Equal(t, "Looks like a bank fee", sg.Description)

	tx, err := mock.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAIClassified, tx.Status)
}

func TestSuggestBatchSkipsClassifiedAndIsRepeatable(t *testing.T) {
	o, _, batchID := suggestFixture(t, &suggest.Proposal{
		AccountID: 10, Type: models.RuleSpend, Confidence: 0.8,
	})
	ctx := context.Background()

	_, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)

	second, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Suggested)
	assert.Equal(t, 1, second.AlreadyClassified)
}

func TestSuggestBatchRejectsUnknownAccount(t *testing.T) {
	o, mock, batchID := suggestFixture(t, &suggest.Proposal{
		AccountID: 999, Type: models.RuleSpend, Confidence: 0.8,
	})
	ctx := context.Background()

	summary, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Suggested)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error(), "does not exist")

	// No state change for the failed row.
	txns, err := mock.TransactionsByBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnclassified, txns[0].Status)
	assert.Nil(t, txns[0].AISuggestionID)
}

func TestSuggestBatchProviderFailureIsRowScoped(t *testing.T) {
	mock := store.NewMock()
	mock.SeedAccount(testPharmacy, 10, "Bank charges")
	o := New(mock, &suggest.MockSuggester{Err: context.DeadlineExceeded}, nil)
	ctx := context.Background()

	confirm, err := o.Confirm(ctx, request("Date,Description,Amount\n2025-03-01,ODD CHARGE,-75.00\n2025-03-02,OTHER CHARGE,-12.00\n"))
	require.NoError(t, err)

	summary, err := o.SuggestBatch(ctx, confirm.BatchID)
	require.NoError(t, err, "provider failures never abort the batch")
	assert.Equal(t, 0, summary.Suggested)
	assert.Len(t, summary.Errors, 2)
}

func TestAcceptSuggestion(t *testing.T) {
	o, mock, batchID := suggestFixture(t, &suggest.Proposal{
		AccountID: 10, Type: models.RuleSpend, Confidence: 0.8,
	})
	ctx := context.Background()
	_, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	sgID, txID := pendingSuggestionID(t, mock, batchID)

	require.NoError(t, o.AcceptSuggestion(ctx, sgID, nil))

	tx, err := mock.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUserOverride, tx.Status)
	require.NotNil(t, tx.ClassifiedAt)
	require.NotNil(t, tx.LedgerEntryID)

	entries, err := mock.LedgerEntriesByTransaction(ctx, txID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].AccountID)
	assert.True(t, entries[0].Amount.Equal(dec("75")))
	assert.Equal(t, models.SourceAI, entries[0].Source)

	sg, err := mock.GetSuggestion(ctx, sgID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionAccepted, sg.Status)
	require.NotNil(t, sg.ResolvedAt)

	// Resolved suggestions are immutable.
	require.Error(t, o.AcceptSuggestion(ctx, sgID, nil))
	require.Error(t, o.RejectSuggestion(ctx, sgID))
}

func TestAcceptSuggestionWithAccountOverride(t *testing.T) {
	o, mock, batchID := suggestFixture(t, &suggest.Proposal{
		AccountID: 10, Type: models.RuleSpend, Confidence: 0.8,
	})
	ctx := context.Background()
	_, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	sgID, txID := pendingSuggestionID(t, mock, batchID)

	override := int64(11)
	require.NoError(t, o.AcceptSuggestion(ctx, sgID, &override))

	entries, err := mock.LedgerEntriesByTransaction(ctx, txID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(11), entries[0].AccountID)
}

func TestAcceptSuggestionUnknownOverrideAccount(t *testing.T) {
	o, mock, batchID := suggestFixture(t, &suggest.Proposal{
		AccountID: 10, Type: models.RuleSpend, Confidence: 0.8,
	})
	ctx := context.Background()
	_, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	sgID, txID := pendingSuggestionID(t, mock, batchID)

	override := int64(999)
	require.Error(t, o.AcceptSuggestion(ctx, sgID, &override))

	tx, err := mock.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAIClassified, tx.Status, "failed accept leaves the transaction waiting")
}

func TestRejectSuggestionReturnsToUnclassified(t *testing.T) {
	o, mock, batchID := suggestFixture(t,
		&suggest.Proposal{AccountID: 10, Type: models.RuleSpend, Confidence: 0.8},
		&suggest.Proposal{AccountID: 11, Type: models.RuleSpend, Confidence: 0.6},
	)
	ctx := context.Background()
	_, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	sgID, txID := pendingSuggestionID(t, mock, batchID)

	require.NoError(t, o.RejectSuggestion(ctx, sgID))

	tx, err := mock.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnclassified, tx.Status)
	assert.Nil(t, tx.AISuggestionID)

	sg, err := mock.GetSuggestion(ctx, sgID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionRejected, sg.Status)

	// A rejected transaction is eligible for a fresh suggestion.
	again, err := o.SuggestBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Suggested)
}

func TestSuggestBatchWithoutProvider(t *testing.T) {
	o, _ := newTestOrchestrator()
	_, err := o.SuggestBatch(context.Background(), 1)
	require.Error(t, err)
}
