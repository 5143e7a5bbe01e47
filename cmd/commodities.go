package main

import (
	"github.com/spf13/cobra"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

var commoditiesCmd = &cobra.Command{
	Use:   "commodities",
	Short: "Match local resource names to USDA commodities",
	Long: `Match local resource and primary ag product names against the USDA
commodity vocabulary.

The phases run in order: fetch pulls the vocabulary from Quick Stats,
automatch scores every unmapped name, review walks the ambiguous ones
interactively, and save commits approved matches to the database.
Each phase persists its output so the next can pick it up, or use
workflow to run them all.`,
}

func init() {
	commoditiesCmd.PersistentFlags().Float64("auto-threshold", 0, "similarity at or above which a match is automatic (default from config)")
	commoditiesCmd.PersistentFlags().Float64("review-threshold", 0, "similarity at or above which a match is queued for review (default from config)")
	commoditiesCmd.PersistentFlags().Int("top-n", 0, "candidates kept per review item (default from config)")
	commoditiesCmd.PersistentFlags().String("cache-dir", "", "state snapshot directory (default from config)")
	rootCmd.AddCommand(commoditiesCmd)
}

// matchParams resolves thresholds and top-N from flags over config. The
// shared flags live on the commodities command's persistent set, which
// subcommands inherit.
func matchParams() (commodity.Thresholds, int, error) {
	th := commodity.Thresholds{
		Auto:   cfg.Match.AutoThreshold,
		Review: cfg.Match.ReviewThreshold,
	}
	topN := cfg.Match.TopN

	flags := commoditiesCmd.PersistentFlags()
	if v, _ := flags.GetFloat64("auto-threshold"); v != 0 {
		th.Auto = v
	}
	if v, _ := flags.GetFloat64("review-threshold"); v != 0 {
		th.Review = v
	}
	if v, _ := flags.GetInt("top-n"); v != 0 {
		topN = v
	}

	if err := th.Validate(); err != nil {
		return commodity.Thresholds{}, 0, err
	}
	return th, topN, nil
}

// applyCacheDir lets --cache-dir override the configured snapshot dir.
func applyCacheDir() {
	if dir, _ := commoditiesCmd.PersistentFlags().GetString("cache-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}
}
