package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

var commoditiesAutomatchCmd = &cobra.Command{
	Use:   "automatch",
	Short: "Score resource names against the cached vocabulary",
	Long: `Score every resource and primary ag product name against the cached
commodity vocabulary. High-confidence matches are approved automatically,
ambiguous ones are queued for interactive review, and the rest are left
unmatched. Run fetch first to populate the vocabulary cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "commodities.automatch"))
		applyCacheDir()

		th, topN, err := matchParams()
		if err != nil {
			return err
		}

		snapshots, err := openState()
		if err != nil {
			return err
		}
		catalog, err := snapshots.LoadCatalog()
		if err != nil {
			return err
		}
		if len(catalog) == 0 {
			return eris.New("commodities automatch: vocabulary cache is empty, run fetch first")
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		resources, err := store.ListResources(ctx)
		if err != nil {
			return err
		}

		log.Info("matching resources",
			zap.Int("resources", len(resources)),
			zap.Int("commodities", len(catalog)),
			zap.Float64("auto_threshold", th.Auto),
			zap.Float64("review_threshold", th.Review),
		)

		decisions, reviews, _ := commodity.AutoMatch(resources, catalog, th, topN, os.Stdout)

		prior, err := snapshots.LoadApproved()
		if err != nil {
			return err
		}
		if err := snapshots.SaveApproved(append(prior, decisions...)); err != nil {
			return err
		}
		return snapshots.SavePending(reviews)
	},
}

func init() {
	commoditiesCmd.AddCommand(commoditiesAutomatchCmd)
}
