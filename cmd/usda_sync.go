package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/etl"
	"github.com/petercarbsmith/ca-biositing/internal/mapping"
	"github.com/petercarbsmith/ca-biositing/internal/nass"
)

var usdaSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load census records for mapped commodities",
	Long: `Query Quick Stats for every commodity code already mapped to a local
resource and bulk-load the county-level census records. Re-running the
same state and year is a no-op for records already loaded. Requires the
postgres store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "usda.sync"))

		state, _ := cmd.Flags().GetString("state")
		if state == "" {
			state = cfg.NASS.State
		}
		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = cfg.NASS.Year
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		// The bulk loader needs COPY; the sqlite store has no pool.
		pg, ok := store.(*mapping.PostgresStore)
		if !ok {
			return eris.New("usda sync: requires store.driver=postgres")
		}

		if err := store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "usda sync: migrate")
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

		log.Info("starting census sync", zap.String("state", state), zap.Int("year", year))

		engine := etl.NewEngine(pg.Pool(), client, pg, state, year)
		if _, err := engine.Run(ctx, os.Stdout); err != nil {
			return eris.Wrap(err, "usda sync")
		}
		return nil
	},
}

func init() {
	usdaSyncCmd.Flags().String("state", "", "state to sync (default from config)")
	usdaSyncCmd.Flags().Int("year", 0, "census year to sync (default from config)")
	usdaCmd.AddCommand(usdaSyncCmd)
}
