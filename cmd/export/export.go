// Package export handles the batch CSV export command.
package export

import (
	"os"

	"github.com/spf13/cobra"

	"rxledger/bank-import/cmd/root"
	"rxledger/bank-import/internal/common"
)

// Cmd represents the export command.
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export a batch's transactions to normalized CSV",
	Long:  `Write the transactions of an import batch to a CSV file in the normalized format.`,
	Run:   exportFunc,
}

func exportFunc(cmd *cobra.Command, args []string) {
	flags := root.SharedFlags
	if flags.BatchID == 0 || flags.Output == "" {
		root.Log.Error("--batch and --output are required")
		os.Exit(1)
	}

	s, err := root.OpenStore()
	if err != nil {
		root.Log.WithError(err).Error("Failed to open store")
		os.Exit(1)
	}
	defer func() { _ = s.Close() }()

	txns, err := s.TransactionsByBatch(cmd.Context(), flags.BatchID)
	if err != nil {
		root.Log.WithError(err).Error("Failed to load batch transactions")
		os.Exit(1)
	}

	if err := common.ExportTransactionsToCSV(txns, flags.Output, root.Log); err != nil {
		root.Log.WithError(err).Error("Export failed")
		os.Exit(1)
	}
	root.Log.Info("Export completed")
}
