package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petercarbsmith/ca-biositing/internal/review"
)

var commoditiesReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively review ambiguous matches",
	Long: `Walk the pending review queue one item at a time. Enter a candidate
number to approve it, n to skip the item, or q to quit. Quitting saves
your approvals and leaves the unreviewed items (including the one on
screen) in the queue for next time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyCacheDir()

		snapshots, err := openState()
		if err != nil {
			return err
		}

		session := review.NewSession(snapshots, os.Stdin, os.Stdout)
		summary, err := session.Run()
		if err != nil {
			return err
		}

		fmt.Printf("\nApproved %d, skipped %d, %d remaining.\n",
			summary.Approved, summary.Skipped, summary.Remaining)
		return nil
	},
}

func init() {
	commoditiesCmd.AddCommand(commoditiesReviewCmd)
}
