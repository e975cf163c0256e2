// Package importer sequences the import pipeline: parse, dedupe, persist,
// classify, suggest. It owns the batch and transaction state machines; the
// parsing, matching and storage mechanics live in their own packages.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/dedup"
	"rxledger/bank-import/internal/dialect"
	"rxledger/bank-import/internal/importerr"
	"rxledger/bank-import/internal/ledger"
	"rxledger/bank-import/internal/logging"
	"rxledger/bank-import/internal/models"
	"rxledger/bank-import/internal/parser"
	"rxledger/bank-import/internal/rules"
	"rxledger/bank-import/internal/store"
	"rxledger/bank-import/internal/suggest"
)

const sampleSize = 10

// Orchestrator drives imports for all pharmacies. Imports for the same bank
// account are serialized; different accounts proceed concurrently.
type Orchestrator struct {
	store     store.Store
	matcher   *rules.Matcher
	suggester suggest.Suggester
	log       logging.Logger
	locks     accountLocks
}

// New creates an orchestrator. The suggester may be nil, in which case
// SuggestBatch is unavailable but everything else works.
func New(s store.Store, suggester suggest.Suggester, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:     s,
		matcher:   rules.NewMatcher(),
		suggester: suggester,
		log:       logging.OrNop(logger),
	}
}

// ImportRequest carries one uploaded statement file.
type ImportRequest struct {
	PharmacyID    int64
	BankAccountID int64
	BankName      string // Dialect hint; blank falls back to generic
	FileName      string
	Data          []byte
}

// SuspectedDuplicate flags one imported row for human review.
type SuspectedDuplicate struct {
	RowNumber  int
	ExistingID int64
	Reason     string
}

// PreviewSummary describes what a file would import. Nothing is persisted.
type PreviewSummary struct {
	TransactionCount    int
	TotalIn             decimal.Decimal
	TotalOut            decimal.Decimal
	MinDate             *time.Time
	MaxDate             *time.Time
	Sample              []models.CanonicalTransaction
	SuspectedDuplicates []SuspectedDuplicate
	Errors              []importerr.ParseError
}

// ImportSummary describes a confirmed import. ErrorCount covers both parse
// errors and row-scoped persistence failures.
type ImportSummary struct {
	BatchID               int64
	InsertedCount         int
	SkippedDuplicateCount int
	SuspectedDuplicates   []SuspectedDuplicate
	ErrorCount            int
	Errors                []importerr.ParseError
	RowErrors             []RowError
	PeriodStart           *time.Time
	PeriodEnd             *time.Time
	Status                models.BatchStatus
}

// Preview parses and dedupe-checks the file without persisting anything.
func (o *Orchestrator) Preview(ctx context.Context, req ImportRequest) (*PreviewSummary, error) {
	txns, parseErrs, err := o.parse(req)
	if err != nil {
		return nil, err
	}

	summary := &PreviewSummary{Errors: parseErrs}
	lookup := &previewLookup{store: o.store}
	detector := dedup.NewDetector(lookup)

	// Rows accepted earlier in this pass join the lookup overlay, so the
	// detector sees the same intra-file duplicates Confirm would and the
	// preview totals predict the confirm result.
	for _, tx := range txns {
		verdict, err := detector.Classify(ctx, tx, req.BankAccountID)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if verdict.Kind != dedup.New {
			summary.SuspectedDuplicates = append(summary.SuspectedDuplicates, SuspectedDuplicate{
				RowNumber:  tx.RowNumber,
				ExistingID: verdict.ExistingID,
				Reason:     verdict.Reason,
			})
			if verdict.Kind == dedup.CertainDuplicate {
				continue
			}
		}

		lookup.accept(tx)
		summary.TransactionCount++
		if tx.IsInflow() {
			summary.TotalIn = summary.TotalIn.Add(tx.Amount)
		} else {
			summary.TotalOut = summary.TotalOut.Add(tx.Amount.Abs())
		}
		summary.MinDate, summary.MaxDate = widenPeriod(summary.MinDate, summary.MaxDate, tx.Date)
		if len(summary.Sample) < sampleSize {
			summary.Sample = append(summary.Sample, tx)
		}
	}

	return summary, nil
}

// previewLookup layers the rows a preview pass has already accepted over the
// persisted transactions, without writing anything. Overlay rows carry no id;
// a zero ExistingID in a preview verdict means an earlier row of the same
// file.
type previewLookup struct {
	store    dedup.TransactionLookup
	accepted []models.PersistedTransaction
}

func (p *previewLookup) accept(tx models.CanonicalTransaction) {
	p.accepted = append(p.accepted, models.PersistedTransaction{CanonicalTransaction: tx})
}

func (p *previewLookup) ByExternalID(ctx context.Context, bankAccountID int64, externalID string) ([]models.PersistedTransaction, error) {
	existing, err := p.store.ByExternalID(ctx, bankAccountID, externalID)
	if err != nil {
		return nil, err
	}
	for _, tx := range p.accepted {
		if tx.ExternalID == externalID {
			existing = append(existing, tx)
		}
	}
	return existing, nil
}

func (p *previewLookup) ByDateAmount(ctx context.Context, bankAccountID int64, date time.Time, amount decimal.Decimal) ([]models.PersistedTransaction, error) {
	existing, err := p.store.ByDateAmount(ctx, bankAccountID, date, amount)
	if err != nil {
		return nil, err
	}
	for _, tx := range p.accepted {
		if tx.Date.Equal(date) && tx.Amount.Equal(amount) {
			existing = append(existing, tx)
		}
	}
	return existing, nil
}

// Confirm parses the file and persists it as a new batch. Confirming the same
// file again inserts nothing new: every row resolves as a duplicate against
// the first import. Cancellation stops further rows; already-persisted rows
// stay.
func (o *Orchestrator) Confirm(ctx context.Context, req ImportRequest) (*ImportSummary, error) {
	unlock := o.locks.lock(req.BankAccountID)
	defer unlock()

	txns, parseErrs, err := o.parse(req)
	if err != nil {
		return nil, err
	}

	batch := &models.ImportBatch{
		BankAccountID: req.BankAccountID,
		PharmacyID:    req.PharmacyID,
		FileName:      req.FileName,
		Status:        models.BatchImported,
		UploadedAt:    time.Now().UTC(),
	}
	if err := o.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	summary := &ImportSummary{
		BatchID: batch.ID,
		Errors:  parseErrs,
		Status:  batch.Status,
	}
	detector := dedup.NewDetector(o.store)

	log := o.log.WithFields(
		logging.Field{Key: logging.FieldBatch, Value: batch.ID},
		logging.Field{Key: logging.FieldBankAccount, Value: req.BankAccountID},
		logging.Field{Key: logging.FieldFile, Value: req.FileName},
	)

	for _, tx := range txns {
		if ctx.Err() != nil {
			log.Warn("Import cancelled, keeping rows persisted so far",
				logging.Field{Key: logging.FieldCount, Value: summary.InsertedCount})
			break
		}

		// Inserted rows are immediately visible to the detector, so a second
		// identical row in this same file resolves against the first.
		verdict, err := detector.Classify(ctx, tx, req.BankAccountID)
		if err != nil {
			summary.RowErrors = append(summary.RowErrors, RowError{RowNumber: tx.RowNumber, Err: err})
			log.WithError(err).Warn("Duplicate check failed, skipping row",
				logging.Field{Key: logging.FieldRow, Value: tx.RowNumber})
			continue
		}

		if verdict.Kind == dedup.CertainDuplicate {
			summary.SkippedDuplicateCount++
			log.Debug("Skipping duplicate row",
				logging.Field{Key: logging.FieldRow, Value: tx.RowNumber},
				logging.Field{Key: logging.FieldReason, Value: verdict.Reason})
			continue
		}

		persisted := &models.PersistedTransaction{
			CanonicalTransaction: tx,
			BatchID:              batch.ID,
			BankAccountID:        req.BankAccountID,
			Status:               models.StatusUnclassified,
		}
		if verdict.Kind == dedup.SuspectedDuplicate {
			existingID := verdict.ExistingID
			persisted.SuspectedDuplicateOf = &existingID
			persisted.DuplicateReason = verdict.Reason
			summary.SuspectedDuplicates = append(summary.SuspectedDuplicates, SuspectedDuplicate{
				RowNumber:  tx.RowNumber,
				ExistingID: verdict.ExistingID,
				Reason:     verdict.Reason,
			})
		}

		if err := o.store.InsertTransaction(ctx, persisted); err != nil {
			summary.RowErrors = append(summary.RowErrors, RowError{RowNumber: tx.RowNumber, Err: err})
			log.WithError(err).Warn("Failed to persist row, continuing with the rest",
				logging.Field{Key: logging.FieldRow, Value: tx.RowNumber})
			continue
		}
		summary.InsertedCount++
		summary.PeriodStart, summary.PeriodEnd = widenPeriod(summary.PeriodStart, summary.PeriodEnd, tx.Date)
	}
	summary.ErrorCount = len(summary.Errors) + len(summary.RowErrors)

	batch.PeriodStart = summary.PeriodStart
	batch.PeriodEnd = summary.PeriodEnd
	if err := o.store.UpdateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("updating batch period: %w", err)
	}

	log.Info("Import confirmed",
		logging.Field{Key: "inserted", Value: summary.InsertedCount},
		logging.Field{Key: "skipped_duplicates", Value: summary.SkippedDuplicateCount},
		logging.Field{Key: "errors", Value: summary.ErrorCount})

	return summary, nil
}

// ApplySummary describes one apply-rules pass over a batch. A row whose
// ledger posting failed stays unclassified and is reported in Errors.
type ApplySummary struct {
	TotalLines        int
	ClassifiedByRule  int
	AlreadyClassified int
	Unclassified      int
	Errors            []RowError
}

// ApplyRules runs the rule matcher over every unclassified transaction of the
// batch. Re-running is safe: already-classified rows are skipped and the
// counts converge.
func (o *Orchestrator) ApplyRules(ctx context.Context, batchID int64) (*ApplySummary, error) {
	batch, err := o.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	ruleSet, err := o.store.ActiveRules(ctx, batch.PharmacyID)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	txns, err := o.store.TransactionsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading batch transactions: %w", err)
	}

	summary := &ApplySummary{TotalLines: len(txns)}

	for i := range txns {
		tx := &txns[i]
		if tx.Status != models.StatusUnclassified {
			summary.AlreadyClassified++
			continue
		}

		match := o.matcher.Match(&tx.CanonicalTransaction, ruleSet)
		if match == nil {
			summary.Unclassified++
			continue
		}

		if err := o.classifyByRule(ctx, tx, match); err != nil {
			summary.Errors = append(summary.Errors, RowError{TransactionID: tx.ID, Err: err})
			summary.Unclassified++
			o.log.WithError(err).Warn("Rule classification failed, continuing with the rest",
				logging.Field{Key: logging.FieldTransaction, Value: tx.ID})
			continue
		}
		summary.ClassifiedByRule++

		o.log.Debug("Rule classified transaction",
			logging.Field{Key: logging.FieldTransaction, Value: tx.ID},
			logging.Field{Key: logging.FieldRule, Value: match.Rule.ID})
	}

	target := models.BatchClassifiedComplete
	if summary.Unclassified > 0 {
		target = models.BatchClassifiedPartial
	}
	// Forward-only: a batch further along (e.g. posted) stays where it is.
	if err := batch.AdvanceTo(target); err == nil {
		if err := o.store.UpdateBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("updating batch status: %w", err)
		}
	}

	return summary, nil
}

func (o *Orchestrator) classifyByRule(ctx context.Context, tx *models.PersistedTransaction, match *rules.Match) error {
	entries, err := ledger.EntriesForAllocations(tx, match.Allocations, match.Rule.Type, models.SourceRule)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	saved, err := o.store.AppendLedgerEntries(ctx, entries)
	if err != nil {
		return fmt.Errorf("posting ledger entries for transaction %d: %w", tx.ID, err)
	}

	now := time.Now().UTC()
	ruleID := match.Rule.ID
	tx.Status = models.StatusRuleClassified
	tx.ClassifiedAt = &now
	tx.MatchedRuleID = &ruleID
	if len(saved) > 0 {
		entryID := saved[0].ID
		tx.LedgerEntryID = &entryID
	}
	if err := o.store.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("updating transaction %d: %w", tx.ID, err)
	}
	return nil
}

func (o *Orchestrator) parse(req ImportRequest) ([]models.CanonicalTransaction, []importerr.ParseError, error) {
	if len(req.Data) == 0 {
		return nil, nil, &importerr.DialectError{Dialect: req.BankName, Reason: "file is empty"}
	}
	d := dialect.ForBank(req.BankName)
	p := parser.New(d, o.log)
	return p.Parse(bytes.NewReader(req.Data))
}

func widenPeriod(start, end *time.Time, d time.Time) (*time.Time, *time.Time) {
	day := d
	if start == nil || day.Before(*start) {
		start = &day
	}
	if end == nil || day.After(*end) {
		end = &day
	}
	return start, end
}
