package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/mapping"
)

var commoditiesSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Commit approved matches to the database",
	Long: `Commit every approved match to the mapping table, creating commodity
rows as needed. Saving is idempotent: matches already in the database
are skipped, so the command is safe to re-run. The approved snapshot is
cleared once the batch lands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "commodities.save"))
		applyCacheDir()

		snapshots, err := openState()
		if err != nil {
			return err
		}
		decisions, err := snapshots.LoadApproved()
		if err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		result, err := mapping.Commit(ctx, store, decisions, os.Stdout)
		if err != nil {
			return err
		}

		log.Info("save complete", zap.Int("saved", result.Saved), zap.Int("skipped", result.Skipped))
		return snapshots.SaveApproved(nil)
	},
}

func init() {
	commoditiesCmd.AddCommand(commoditiesSaveCmd)
}
