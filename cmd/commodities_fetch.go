package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/nass"
)

var commoditiesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the USDA commodity vocabulary",
	Long: `Fetch the commodity vocabulary for the configured state and year from
the Quick Stats API and cache it locally. A failed fetch leaves any
previously cached vocabulary untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "commodities.fetch"))
		applyCacheDir()

		state, _ := cmd.Flags().GetString("state")
		if state == "" {
			state = cfg.NASS.State
		}
		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = cfg.NASS.Year
		}

		client, err := nass.NewClient(nass.Options{
			BaseURL:        cfg.NASS.BaseURL,
			APIKey:         cfg.NASS.Key,
			MaxRetries:     cfg.NASS.MaxRetries,
			RequestsPerSec: cfg.NASS.RequestsPerSec,
		})
		if err != nil {
			return err
		}

		log.Info("fetching commodity vocabulary", zap.String("state", state), zap.Int("year", year))
		catalog, err := client.FetchCatalog(ctx, state, year)
		if err != nil {
			return eris.Wrap(err, "commodities fetch")
		}

		store, err := openState()
		if err != nil {
			return err
		}
		if err := store.SaveCatalog(catalog); err != nil {
			return err
		}

		fmt.Printf("Cached %d commodities for %s %d.\n", len(catalog), state, year)
		return nil
	},
}

func init() {
	commoditiesFetchCmd.Flags().String("state", "", "state to query (default from config)")
	commoditiesFetchCmd.Flags().Int("year", 0, "census year to query (default from config)")
	commoditiesCmd.AddCommand(commoditiesFetchCmd)
}
