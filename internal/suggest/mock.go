package suggest

import (
	"context"

	"rxledger/bank-import/internal/models"
)

// MockSuggester is a canned Suggester for tests. Responses are served in
// order; Err short-circuits every call when set.
type MockSuggester struct {
	Proposals []*Proposal
	Err       error

	Calls []int64 // Transaction IDs in the order they were suggested
	next  int
}

func (m *MockSuggester) Suggest(_ context.Context, tx *models.PersistedTransaction, _ []AccountOption) (*Proposal, error) {
	m.Calls = append(m.Calls, tx.ID)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.next >= len(m.Proposals) {
		return nil, context.Canceled
	}
	p := m.Proposals[m.next]
	m.next++
	return p, nil
}
