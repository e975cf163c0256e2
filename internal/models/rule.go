package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleType distinguishes what kind of money movement a rule classifies.
type RuleType string

const (
	RuleReceive  RuleType = "receive"
	RuleSpend    RuleType = "spend"
	RuleTransfer RuleType = "transfer"
)

// ConditionGroup partitions a rule's conditions. Every ALL condition must
// hold; at least one ANY condition must hold when the ANY group is non-empty.
type ConditionGroup string

const (
	GroupAll ConditionGroup = "ALL"
	GroupAny ConditionGroup = "ANY"
)

// ConditionField names the transaction attribute a condition inspects.
type ConditionField string

const (
	FieldDescription ConditionField = "description"
	FieldReference   ConditionField = "reference"
	FieldAmount      ConditionField = "amount"
	FieldAmountIn    ConditionField = "amount_in"
	FieldAmountOut   ConditionField = "amount_out"
	FieldDate        ConditionField = "date"
)

// ConditionOperator is the comparison a condition applies.
type ConditionOperator string

const (
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not_contains"
	OpEquals      ConditionOperator = "equals"
	OpStartsWith  ConditionOperator = "starts_with"
	OpEndsWith    ConditionOperator = "ends_with"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpRegex       ConditionOperator = "regex"
)

// RuleCondition is one predicate of a classification rule. Numeric and date
// operators parse Value at evaluation time.
type RuleCondition struct {
	Group    ConditionGroup    `yaml:"group" json:"group"`
	Field    ConditionField    `yaml:"field" json:"field"`
	Operator ConditionOperator `yaml:"operator" json:"operator"`
	Value    string            `yaml:"value" json:"value"`
}

// Allocation is a percentage split of a transaction's amount to one ledger
// account. Percentages of an active rule sum to exactly 100.
type Allocation struct {
	AccountID int64           `yaml:"account_id" json:"account_id"`
	Percent   decimal.Decimal `yaml:"percent" json:"percent"`
	VATCode   string          `yaml:"vat_code" json:"vat_code"`
}

// ClassificationRule is a reusable matcher for one pharmacy. Rules are data,
// not behavior: the matcher interprets them, nothing executes them.
type ClassificationRule struct {
	ID          int64
	PharmacyID  int64
	Name        string
	Type        RuleType
	Priority    int // Lower evaluates first
	Conditions  []RuleCondition
	Allocations []Allocation
	IsActive    bool
	CreatedAt   time.Time
}

// ConditionsIn returns the rule's conditions belonging to the given group.
func (r *ClassificationRule) ConditionsIn(group ConditionGroup) []RuleCondition {
	var out []RuleCondition
	for _, c := range r.Conditions {
		if c.Group == group {
			out = append(out, c)
		}
	}
	return out
}
