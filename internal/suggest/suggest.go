// Package suggest asks an external model to propose a classification for
// transactions no rule matched. Model responses are untrusted input and get
// validated against the pharmacy's chart of accounts before anyone sees them.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"rxledger/bank-import/internal/models"
)

// AccountOption is one ledger account offered to the model as a candidate.
type AccountOption struct {
	ID   int64
	Name string
}

// Proposal is a validated classification proposal for one transaction.
type Proposal struct {
	AccountID  int64
	Type       models.RuleType
	Confidence float64 // In [0,1]
	Rationale  string
}

// Suggester proposes a classification for a single transaction given the
// candidate accounts. Implementations must honor context cancellation.
type Suggester interface {
	Suggest(ctx context.Context, tx *models.PersistedTransaction, accounts []AccountOption) (*Proposal, error)
}

// validate checks a parsed proposal against the offered accounts. A proposal
// naming an account the model was never offered is rejected outright.
func validate(p *Proposal, accounts []AccountOption) error {
	known := false
	for _, a := range accounts {
		if a.ID == p.AccountID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("proposed account %d is not in the offered chart", p.AccountID)
	}

	switch p.Type {
	case models.RuleReceive, models.RuleSpend, models.RuleTransfer:
	default:
		return fmt.Errorf("proposed type %q is not a known transaction type", p.Type)
	}

	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v is outside [0,1]", p.Confidence)
	}
	return nil
}

func accountList(accounts []AccountOption) string {
	var b strings.Builder
	for _, a := range accounts {
		fmt.Fprintf(&b, "%d: %s\n", a.ID, a.Name)
	}
	return b.String()
}
