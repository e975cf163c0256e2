// Package dialect models the column-naming and amount-representation
// conventions of bank CSV exports. Each bank's quirks are data behind a
// single Dialect capability, selected by a factory keyed on the account's
// configured bank name; a generic fallback covers unrecognized banks.
package dialect

// Column identifies a logical statement column independent of what a given
// bank calls it.
type Column string

const (
	ColDate        Column = "date"
	ColDescription Column = "description"
	ColReference   Column = "reference"
	ColAmount      Column = "amount"
	ColDebit       Column = "debit"
	ColCredit      Column = "credit"
	ColBalance     Column = "balance"
	ColExternalID  Column = "external_id"
)

// AmountStrategy says how a dialect represents the transaction amount.
type AmountStrategy string

const (
	// AmountAuto prefers a single signed column when the file has one and
	// falls back to a debit/credit pair otherwise.
	AmountAuto AmountStrategy = "auto"
	// AmountSigned reads one signed amount column.
	AmountSigned AmountStrategy = "signed"
	// AmountSplit reads separate debit and credit columns, negating the
	// debit side.
	AmountSplit AmountStrategy = "split"
)

// Dialect is the capability a parser needs to map a bank's export onto the
// canonical transaction shape.
type Dialect interface {
	Name() string
	// Synonyms returns the accepted header names for a logical column, in
	// priority order. Matching is case-insensitive.
	Synonyms(col Column) []string
	AmountStrategy() AmountStrategy
}

// Definition is a concrete, data-only Dialect. Custom dialects loaded from
// YAML and the builtins are both Definitions.
type Definition struct {
	DialectName string              `yaml:"name"`
	Strategy    AmountStrategy      `yaml:"amount_strategy"`
	Columns     map[Column][]string `yaml:"synonyms"`
}

func (d *Definition) Name() string { return d.DialectName }

func (d *Definition) Synonyms(col Column) []string {
	if syns, ok := d.Columns[col]; ok && len(syns) > 0 {
		return syns
	}
	// Fall back to the generic vocabulary for columns the definition
	// does not override.
	return genericSynonyms[col]
}

func (d *Definition) AmountStrategy() AmountStrategy {
	if d.Strategy == "" {
		return AmountAuto
	}
	return d.Strategy
}
