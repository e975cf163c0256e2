package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/models"
)

// Mock is an in-memory Store for tests and local experimentation. It is safe
// for concurrent use.
type Mock struct {
	mu sync.Mutex

	batches      map[int64]models.ImportBatch
	transactions map[int64]models.PersistedTransaction
	rules        map[int64][]models.ClassificationRule  // keyed by pharmacy
	accounts     map[int64]map[int64]string             // pharmacy -> account id -> name
	suggestions  map[int64]models.AISuggestion
	entries      map[int64]models.LedgerEntry

	nextBatchID       int64
	nextTransactionID int64
	nextSuggestionID  int64
	nextEntryID       int64
}

// NewMock creates an empty in-memory store.
func NewMock() *Mock {
	return &Mock{
		batches:      map[int64]models.ImportBatch{},
		transactions: map[int64]models.PersistedTransaction{},
		rules:        map[int64][]models.ClassificationRule{},
		accounts:     map[int64]map[int64]string{},
		suggestions:  map[int64]models.AISuggestion{},
		entries:      map[int64]models.LedgerEntry{},
	}
}

// SeedRules installs the rule set returned for a pharmacy.
func (m *Mock) SeedRules(pharmacyID int64, rules []models.ClassificationRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[pharmacyID] = rules
}

// SeedAccount registers a ledger account for a pharmacy.
func (m *Mock) SeedAccount(pharmacyID, accountID int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts[pharmacyID] == nil {
		m.accounts[pharmacyID] = map[int64]string{}
	}
	m.accounts[pharmacyID][accountID] = name
}

func (m *Mock) CreateBatch(_ context.Context, batch *models.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBatchID++
	batch.ID = m.nextBatchID
	m.batches[batch.ID] = *batch
	return nil
}

func (m *Mock) GetBatch(_ context.Context, id int64) (*models.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %d not found", id)
	}
	return &b, nil
}

func (m *Mock) UpdateBatch(_ context.Context, batch *models.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[batch.ID]; !ok {
		return fmt.Errorf("batch %d not found", batch.ID)
	}
	m.batches[batch.ID] = *batch
	return nil
}

func (m *Mock) InsertTransaction(_ context.Context, tx *models.PersistedTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTransactionID++
	tx.ID = m.nextTransactionID
	m.transactions[tx.ID] = *tx
	return nil
}

func (m *Mock) UpdateTransaction(_ context.Context, tx *models.PersistedTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %d not found", tx.ID)
	}
	m.transactions[tx.ID] = *tx
	return nil
}

func (m *Mock) GetTransaction(_ context.Context, id int64) (*models.PersistedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d not found", id)
	}
	return &tx, nil
}

func (m *Mock) TransactionsByBatch(_ context.Context, batchID int64) ([]models.PersistedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PersistedTransaction
	for _, tx := range m.transactions {
		if tx.BatchID == batchID {
			out = append(out, tx)
		}
	}
	sortByID(out)
	return out, nil
}

func (m *Mock) ByExternalID(_ context.Context, bankAccountID int64, externalID string) ([]models.PersistedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PersistedTransaction
	for _, tx := range m.transactions {
		if tx.BankAccountID == bankAccountID && tx.ExternalID == externalID {
			out = append(out, tx)
		}
	}
	sortByID(out)
	return out, nil
}

func (m *Mock) ByDateAmount(_ context.Context, bankAccountID int64, date time.Time, amount decimal.Decimal) ([]models.PersistedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PersistedTransaction
	for _, tx := range m.transactions {
		if tx.BankAccountID == bankAccountID &&
			dateKey(tx.Date) == dateKey(date) &&
			amountKey(tx.Amount) == amountKey(amount) {
			out = append(out, tx)
		}
	}
	sortByID(out)
	return out, nil
}

func (m *Mock) ActiveRules(_ context.Context, pharmacyID int64) ([]models.ClassificationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClassificationRule
	for _, r := range m.rules[pharmacyID] {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Mock) AccountExists(_ context.Context, pharmacyID, accountID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[pharmacyID][accountID]
	return ok, nil
}

func (m *Mock) ListAccounts(_ context.Context, pharmacyID int64) ([]models.LedgerAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerAccount
	for id, name := range m.accounts[pharmacyID] {
		out = append(out, models.LedgerAccount{ID: id, PharmacyID: pharmacyID, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Mock) CreateSuggestion(_ context.Context, s *models.AISuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSuggestionID++
	s.ID = m.nextSuggestionID
	m.suggestions[s.ID] = *s
	return nil
}

func (m *Mock) GetSuggestion(_ context.Context, id int64) (*models.AISuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %d not found", id)
	}
	return &s, nil
}

func (m *Mock) UpdateSuggestion(_ context.Context, s *models.AISuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suggestions[s.ID]; !ok {
		return fmt.Errorf("suggestion %d not found", s.ID)
	}
	m.suggestions[s.ID] = *s
	return nil
}

func (m *Mock) AppendLedgerEntries(_ context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		m.nextEntryID++
		e.ID = m.nextEntryID
		m.entries[e.ID] = e
		out = append(out, e)
	}
	return out, nil
}

func (m *Mock) LedgerEntriesByTransaction(_ context.Context, transactionID int64) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	sortEntriesByID(out)
	return out, nil
}

func sortByID(txs []models.PersistedTransaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
}

func sortEntriesByID(entries []models.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}
