package dialect

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]*Definition{}
)

func init() {
	for _, d := range builtins {
		registry[normalizeName(d.DialectName)] = d
	}
}

// ForBank returns the dialect for the given bank name hint. Unrecognized or
// blank hints get the generic dialect; the factory never fails.
func ForBank(bankName string) Dialect {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if d, ok := registry[normalizeName(bankName)]; ok {
		return d
	}
	return Generic
}

// Known reports whether a named (non-generic) dialect exists for the hint.
func Known(bankName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, ok := registry[normalizeName(bankName)]
	return ok
}

// Register adds or replaces a dialect definition. Used by LoadDefinitions and
// by tests.
func Register(d *Definition) error {
	if d == nil || strings.TrimSpace(d.DialectName) == "" {
		return fmt.Errorf("dialect definition requires a name")
	}
	switch d.AmountStrategy() {
	case AmountAuto, AmountSigned, AmountSplit:
	default:
		return fmt.Errorf("dialect %q: unknown amount strategy %q", d.DialectName, d.Strategy)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normalizeName(d.DialectName)] = d
	return nil
}

// definitionsFile is the YAML shape of a custom dialects file.
type definitionsFile struct {
	Dialects []*Definition `yaml:"dialects"`
}

// LoadDefinitions reads custom dialect definitions from YAML and registers
// them, so a deployment can map a new bank without a code change.
func LoadDefinitions(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading dialect definitions: %w", err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parsing dialect definitions: %w", err)
	}

	for _, d := range file.Dialects {
		if err := Register(d); err != nil {
			return 0, err
		}
	}
	return len(file.Dialects), nil
}

// normalizeName canonicalizes a bank name hint: case-insensitive, ignoring
// spaces so "Standard Bank" and "standardbank" select the same dialect.
func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}
