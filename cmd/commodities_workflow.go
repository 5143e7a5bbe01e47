package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commoditiesWorkflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run fetch, automatch, review and save in sequence",
	Long: `Run the full matching workflow: fetch the vocabulary, automatch every
resource, review the ambiguous matches interactively, then save the
approved ones. Quitting the review leaves the remaining queue intact;
approvals made before quitting are still saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := []struct {
			name string
			run  func(*cobra.Command, []string) error
		}{
			{"fetch", commoditiesFetchCmd.RunE},
			{"automatch", commoditiesAutomatchCmd.RunE},
			{"review", commoditiesReviewCmd.RunE},
			{"save", commoditiesSaveCmd.RunE},
		}

		for _, step := range steps {
			fmt.Printf("==> %s\n", step.name)
			if err := step.run(cmd, args); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
		}
		return nil
	},
}

func init() {
	commoditiesWorkflowCmd.Flags().String("state", "", "state to query (default from config)")
	commoditiesWorkflowCmd.Flags().Int("year", 0, "census year to query (default from config)")
	commoditiesCmd.AddCommand(commoditiesWorkflowCmd)
}
