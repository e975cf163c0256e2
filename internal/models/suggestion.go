package models

import "time"

// SuggestionStatus is the lifecycle state of an AI suggestion. Once accepted
// or rejected a suggestion never changes again.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// AISuggestion is a proposed classification from the external model. The
// response is untrusted input: the orchestrator validates account, type and
// confidence before persisting one.
type AISuggestion struct {
	ID            int64
	TransactionID int64
	AccountID     int64
	Description   string
	Type          RuleType
	Confidence    float64 // In [0,1]
	Status        SuggestionStatus
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// IsResolved reports whether the suggestion reached a terminal state.
func (s *AISuggestion) IsResolved() bool {
	return s.Status == SuggestionAccepted || s.Status == SuggestionRejected
}
