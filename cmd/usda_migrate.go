package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usdaMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("Schema up to date")
		return nil
	},
}

func init() {
	usdaCmd.AddCommand(usdaMigrateCmd)
}
