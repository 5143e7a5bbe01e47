package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commoditiesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show matcher state",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyCacheDir()

		snapshots, err := openState()
		if err != nil {
			return err
		}

		catalog, err := snapshots.LoadCatalog()
		if err != nil {
			return err
		}
		pending, err := snapshots.LoadPending()
		if err != nil {
			return err
		}
		approved, err := snapshots.LoadApproved()
		if err != nil {
			return err
		}

		fmt.Printf("Cache dir:       %s\n", snapshots.Dir())
		fmt.Printf("Cached vocabulary: %d commodities\n", len(catalog))
		fmt.Printf("Pending review:    %d items\n", len(pending))
		fmt.Printf("Approved, unsaved: %d matches\n", len(approved))
		return nil
	},
}

func init() {
	commoditiesCmd.AddCommand(commoditiesStatusCmd)
}
