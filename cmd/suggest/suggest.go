// Package suggest handles the AI suggestion commands.
package suggest

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rxledger/bank-import/cmd/root"
)

var (
	suggestionID    int64
	overrideAccount int64
)

// Cmd represents the suggest command.
var Cmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate AI classification suggestions for a batch",
	Long: `Ask the configured AI provider to propose a classification for every
unclassified transaction in the batch. Proposals wait as pending suggestions
until accepted or rejected.`,
	Run: suggestFunc,
}

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept a pending suggestion",
	Long: `Accept a pending suggestion, posting a ledger entry to the suggested
account or to --override-account when given.`,
	Run: acceptFunc,
}

var rejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject a pending suggestion",
	Long: `Reject a pending suggestion. The transaction returns to unclassified and
stays eligible for rule matching or a fresh suggestion.`,
	Run: rejectFunc,
}

func init() {
	acceptCmd.Flags().Int64Var(&suggestionID, "id", 0, "Suggestion id")
	acceptCmd.Flags().Int64Var(&overrideAccount, "override-account", 0, "Post to this account instead of the suggested one")
	rejectCmd.Flags().Int64Var(&suggestionID, "id", 0, "Suggestion id")
	Cmd.AddCommand(acceptCmd)
	Cmd.AddCommand(rejectCmd)
}

func suggestFunc(cmd *cobra.Command, args []string) {
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

	summary, err := o.SuggestBatch(cmd.Context(), root.SharedFlags.BatchID)
	if err != nil {
		root.Log.WithError(err).Error("Suggestion pass failed")
		os.Exit(1)
	}

	fmt.Printf("Total lines:        %d\n", summary.TotalLines)
	fmt.Printf("Suggested:          %d\n", summary.Suggested)
	fmt.Printf("Already classified: %d\n", summary.AlreadyClassified)
	fmt.Printf("Errors:             %d\n", len(summary.Errors))
	for _, e := range summary.Errors {
		fmt.Printf("  %s\n", e.Error())
	}
}

func acceptFunc(cmd *cobra.Command, args []string) {
	if suggestionID == 0 {
		root.Log.Error("--id is required")
		os.Exit(1)
	}

	o, cleanup, err := root.NewOrchestrator(cmd.Context())
	if err != nil {
		root.Log.WithError(err).Error("Failed to initialize")
		os.Exit(1)
	}
	defer cleanup()

	var override *int64
	if overrideAccount != 0 {
		override = &overrideAccount
	}
	if err := o.AcceptSuggestion(cmd.Context(), suggestionID, override); err != nil {
		root.Log.WithError(err).Error("Accept failed")
		os.Exit(1)
	}
	fmt.Printf("Suggestion %d accepted\n", suggestionID)
}

func rejectFunc(cmd *cobra.Command, args []string) {
	if suggestionID == 0 {
		root.Log.Error("--id is required")
		os.Exit(1)
	}

	o, cleanup, err := root.NewOrchestrator(cmd.Context())
	if err != nil {
		root.Log.WithError(err).Error("Failed to initialize")
		os.Exit(1)
	}
	defer cleanup()

	if err := o.RejectSuggestion(cmd.Context(), suggestionID); err != nil {
		root.Log.WithError(err).Error("Reject failed")
		os.Exit(1)
	}
	fmt.Printf("Suggestion %d rejected\n", suggestionID)
}
