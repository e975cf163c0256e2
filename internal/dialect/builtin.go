package dialect

// genericSynonyms is the default vocabulary shared by all dialects. The
// external id list is a fixed priority order: the first non-empty match wins.
var genericSynonyms = map[Column][]string{
	ColDate:        {"Date", "Transaction Date", "Posting Date", "Value Date"},
	ColDescription: {"Description", "Transaction Description", "Narrative", "Memo", "Details"},
	ColReference:   {"Reference", "Ref", "Your Reference"},
	ColAmount:      {"Amount", "Transaction Amount", "Value"},
	ColDebit:       {"Debit", "Debit Amount", "Withdrawal", "Money Out"},
	ColCredit:      {"Credit", "Credit Amount", "Deposit", "Money In"},
	ColBalance:     {"Balance", "Running Balance", "Closing Balance"},
	ColExternalID:  {"Transaction ID", "Reference Number", "Unique Reference", "Trace Number", "Sequence Number"},
}

// Generic is the fallback dialect for banks without a named definition.
var Generic = &Definition{
	DialectName: "generic",
	Strategy:    AmountAuto,
	Columns:     genericSynonyms,
}

// Builtin dialects for the bank exports seen in production. Each only spells
// out where it deviates from the generic vocabulary.
var builtins = []*Definition{
	Generic,
	{
		DialectName: "fnb",
		Strategy:    AmountSigned,
	},
	{
		DialectName: "absa",
		Strategy:    AmountSplit,
		Columns: map[Column][]string{
			ColDebit:  {"Debit", "Debit Amount"},
			ColCredit: {"Credit", "Credit Amount"},
		},
	},
	{
		DialectName: "nedbank",
		Strategy:    AmountSplit,
		Columns: map[Column][]string{
			ColDebit:  {"Withdrawal", "Withdrawals"},
			ColCredit: {"Deposit", "Deposits"},
		},
	},
	{
		DialectName: "capitec",
		Strategy:    AmountSplit,
		Columns: map[Column][]string{
			ColDebit:       {"Money Out", "Debit"},
			ColCredit:      {"Money In", "Credit"},
			ColDescription: {"Description", "Transaction Description", "Narrative"},
		},
	},
	{
		DialectName: "standardbank",
		Strategy:    AmountSigned,
		Columns: map[Column][]string{
			ColDescription: {"Description", "Narrative", "Statement Description"},
		},
	},
}
