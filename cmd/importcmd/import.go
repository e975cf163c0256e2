// Package importcmd handles statement import commands.
package importcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rxledger/bank-import/cmd/root"
	"rxledger/bank-import/internal/importer"
)

var preview bool

// Cmd represents the import command.
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bank statement file",
	Long: `Import a bank statement CSV export for a bank account. With --preview the
file is parsed and duplicate-checked but nothing is persisted; without it the
import is confirmed as a new batch.`,
	Run: importFunc,
}

func init() {
	Cmd.Flags().BoolVar(&preview, "preview", false, "Parse and summarize without persisting")
}

func importFunc(cmd *cobra.Command, args []string) {
	flags := root.SharedFlags
	if flags.Input == "" || flags.PharmacyID == 0 || flags.BankAccountID == 0 {
		root.Log.Error("--input, --pharmacy and --account are required")
		os.Exit(1)
	}

	data, err := os.ReadFile(flags.Input)
	if err != nil {
		root.Log.WithError(err).Error("Failed to read statement file")
		os.Exit(1)
	}

	o, cleanup, err := root.NewOrchestrator(cmd.Context())
	if err != nil {
		root.Log.WithError(err).Error("Failed to initialize")
		os.Exit(1)
	}
	defer cleanup()

	req := importer.ImportRequest{
		PharmacyID:    flags.PharmacyID,
		BankAccountID: flags.BankAccountID,
		BankName:      flags.Bank,
		FileName:      filepath.Base(flags.Input),
		Data:          data,
	}

	if preview {
		summary, err := o.Preview(cmd.Context(), req)
		if err != nil {
			root.Log.WithError(err).Error("Preview failed")
			os.Exit(1)
		}
		printPreview(summary)
		return
	}

	summary, err := o.Confirm(cmd.Context(), req)
	if err != nil {
		root.Log.WithError(err).Error("Import failed")
		os.Exit(1)
	}
	printImport(summary)
}

func printPreview(s *importer.PreviewSummary) {
	fmt.Printf("Transactions:         %d\n", s.TransactionCount)
	fmt.Printf("Total in:             %s\n", s.TotalIn.StringFixed(2))
	fmt.Printf("Total out:            %s\n", s.TotalOut.StringFixed(2))
	if s.MinDate != nil && s.MaxDate != nil {
		fmt.Printf("Period:               %s to %s\n", s.MinDate.Format("2006-01-02"), s.MaxDate.Format("2006-01-02"))
	}
	fmt.Printf("Suspected duplicates: %d\n", len(s.SuspectedDuplicates))
	fmt.Printf("Errors:               %d\n", len(s.Errors))
	for _, e := range s.Errors {
		fmt.Printf("  row %d: %s\n", e.RowNumber, e.Message)
	}
	for _, tx := range s.Sample {
		fmt.Printf("  %s  %10s  %s\n", tx.Date.Format("2006-01-02"), tx.Amount.StringFixed(2), tx.Description)
	}
}

func printImport(s *importer.ImportSummary) {
	fmt.Printf("Batch:                %d\n", s.BatchID)
	fmt.Printf("Inserted:             %d\n", s.InsertedCount)
	fmt.Printf("Skipped duplicates:   %d\n", s.SkippedDuplicateCount)
	fmt.Printf("Suspected duplicates: %d\n", len(s.SuspectedDuplicates))
	fmt.Printf("Errors:               %d\n", s.ErrorCount)
	if s.PeriodStart != nil && s.PeriodEnd != nil {
		fmt.Printf("Period:               %s to %s\n", s.PeriodStart.Format("2006-01-02"), s.PeriodEnd.Format("2006-01-02"))
	}
	for _, e := range s.Errors {
		fmt.Printf("  row %d: %s\n", e.RowNumber, e.Message)
	}
	for _, e := range s.RowErrors {
		fmt.Printf("  %s\n", e.Error())
	}
}
