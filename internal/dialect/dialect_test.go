package dialect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForBank(t *testing.T) {
	tests := []struct {
		name         string
		hint         string
		expectedName string
		strategy     AmountStrategy
	}{
		{name: "known bank", hint: "absa", expectedName: "absa", strategy: AmountSplit},
		{name: "case insensitive", hint: "FNB", expectedName: "fnb", strategy: AmountSigned},
		{name: "spaces ignored", hint: "Standard Bank", expectedName: "standardbank", strategy: AmountSigned},
		{name: "unknown falls back to generic", hint: "some credit union", expectedName: "generic", strategy: AmountAuto},
		{name: "blank falls back to generic", hint: "", expectedName: "generic", strategy: AmountAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ForBank(tt.hint)
			assert.Equal(t, tt.expectedName, d.Name())
			assert.Equal(t, tt.strategy, d.AmountStrategy())
		})
	}
}

func TestSynonymsFallBackToGeneric(t *testing.T) {
	// fnb overrides nothing, so it inherits the full generic vocabulary.
	d := ForBank("fnb")
	assert.Equal(t, Generic.Synonyms(ColDescription), d.Synonyms(ColDescription))

	// nedbank overrides debit/credit but still inherits date.
	ned := ForBank("nedbank")
	assert.Equal(t, []string{"Withdrawal", "Withdrawals"}, ned.Synonyms(ColDebit))
	assert.Equal(t, Generic.Synonyms(ColDate), ned.Synonyms(ColDate))
}

func TestExternalIDSynonymOrder(t *testing.T) {
	// The external id scan order is fixed: first non-empty match wins.
	want := []string{"Transaction ID", "Reference Number", "Unique Reference", "Trace Number", "Sequence Number"}
	assert.Equal(t, want, Generic.Synonyms(ColExternalID))
}

func TestRegisterValidation(t *testing.T) {
	require.Error(t, Register(&Definition{}))
	require.Error(t, Register(&Definition{DialectName: "x", Strategy: "sideways"}))
	require.NoError(t, Register(&Definition{DialectName: "testbank", Strategy: AmountSigned}))
	assert.True(t, Known("testbank"))
}

func TestLoadDefinitions(t *testing.T) {
	yml := `
dialects:
  - name: coopbank
    amount_strategy: split
    synonyms:
      debit: ["Paid Out"]
      credit: ["Paid In"]
`
	n, err := LoadDefinitions(strings.NewReader(yml))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d := ForBank("coopbank")
	assert.Equal(t, AmountSplit, d.AmountStrategy())
	assert.Equal(t, []string{"Paid Out"}, d.Synonyms(ColDebit))
	// Unspecified columns inherit the generic vocabulary.
	assert.Equal(t, Generic.Synonyms(ColDate), d.Synonyms(ColDate))
}

func TestLoadDefinitionsRejectsBadYAML(t *testing.T) {
	_, err := LoadDefinitions(strings.NewReader("dialects: [nope"))
	require.Error(t, err)
}
