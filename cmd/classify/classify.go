// Package classify handles the apply-rules command.
package classify

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rxledger/bank-import/cmd/root"
)

// Cmd represents the classify command.
var Cmd = &cobra.Command{
	Use:   "classify",
	Short: "Apply classification rules to a batch",
	Long: `Run the priority-ordered rule set of the batch's pharmacy over every
unclassified transaction in the batch. Re-running is safe: already-classified
transactions are skipped.`,
	Run: classifyFunc,
}

func classifyFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.BatchID == 0 {
		root.Log.Error("--batch is required")
		os.Exit(1)
	}

	o, cleanup, err := root.NewOrchestrator(cmd.Context())
	if err != nil {
		root.Log.WithError(err).Error("Failed to initialize")
		os.Exit(1)
	}
	defer cleanup()

	summary, err := o.ApplyRules(cmd.Context(), root.SharedFlags.BatchID)
	if err != nil {
		root.Log.WithError(err).Error("Apply-rules failed")
		os.Exit(1)
	}

	fmt.Printf("Total lines:        %d\n", summary.TotalLines)
	fmt.Printf("Classified by rule: %d\n", summary.ClassifiedByRule)
	fmt.Printf("Already classified: %d\n", summary.AlreadyClassified)
	fmt.Printf("Unclassified:       %d\n", summary.Unclassified)
	for _, e := range summary.Errors {
		fmt.Printf("  %s\n", e.Error())
	}
}
