// Package root contains the root command and the shared wiring every
// subcommand uses.
package root

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rxledger/bank-import/internal/config"
	"rxledger/bank-import/internal/dialect"
	"rxledger/bank-import/internal/importer"
	"rxledger/bank-import/internal/logging"
	"rxledger/bank-import/internal/store"
	"rxledger/bank-import/internal/suggest"
)

// CommonFlags are the flags shared across subcommands.
type CommonFlags struct {
	PharmacyID    int64
	BankAccountID int64
	Bank          string
	Input         string
	Output        string
	BatchID       int64
}

var (
	// Log is the shared logger instance for commands.
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cfg is the loaded configuration, populated in PersistentPreRun.
	Cfg *config.Config

	// SharedFlags are accessible to all commands.
	SharedFlags = CommonFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "bank-import",
		Short: "Import, deduplicate and classify pharmacy bank statements.",
		Long: `bank-import ingests bank statement CSV exports in multiple bank dialects,
detects duplicates across and within imports, classifies transactions with
priority-ordered rules and drives the AI suggestion lifecycle for the rest.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
				os.Exit(1)
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

			if cfg.Dialects.File != "" {
				if err := loadCustomDialects(cfg.Dialects.File); err != nil {
					Log.WithError(err).Warn("Failed to load custom dialect definitions",
						logging.Field{Key: logging.FieldFile, Value: cfg.Dialects.File})
				}
			}
		},
	}
)

// Init registers the persistent flags.
func Init() {
	Cmd.PersistentFlags().Int64Var(&SharedFlags.PharmacyID, "pharmacy", 0, "Pharmacy id")
	Cmd.PersistentFlags().Int64Var(&SharedFlags.BankAccountID, "account", 0, "Bank account id")
	Cmd.PersistentFlags().StringVar(&SharedFlags.Bank, "bank", "", "Bank name used as dialect hint (blank = generic)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input statement file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().Int64Var(&SharedFlags.BatchID, "batch", 0, "Import batch id")
}

// OpenStore opens the configured SQLite store.
func OpenStore() (*store.SQLite, error) {
	return store.NewSQLite(Cfg.Database.Path)
}

// NewOrchestrator wires the orchestrator with the configured store and, when
// AI is enabled, the Gemini suggester. The returned func releases everything.
func NewOrchestrator(ctx context.Context) (*importer.Orchestrator, func(), error) {
	s, err := OpenStore()
	if err != nil {
		return nil, nil, err
	}

	var suggester suggest.Suggester
	closers := []func(){func() { _ = s.Close() }}

	if Cfg.AI.Enabled {
		gemini, err := suggest.NewGemini(ctx, Cfg.AI.APIKey, Log)
		if err != nil {
			closers[0]()
			return nil, nil, err
		}
		suggester = gemini
		closers = append(closers, func() { _ = gemini.Close() })
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return importer.New(s, suggester, Log), cleanup, nil
}

func loadCustomDialects(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	n, err := dialect.LoadDefinitions(f)
	if err != nil {
		return err
	}
	Log.Debug("Loaded custom dialect definitions",
		logging.Field{Key: logging.FieldCount, Value: n})
	return nil
}
