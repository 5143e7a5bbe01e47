package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/petercarbsmith/ca-biositing/internal/mapping"
	"github.com/petercarbsmith/ca-biositing/internal/state"
)

// openStore connects the configured mapping store. Callers own Close().
func openStore(ctx context.Context) (mapping.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "postgres":
		return mapping.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return mapping.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openState opens the snapshot store in the configured cache dir.
func openState() (*state.Store, error) {
	return state.New(cfg.Cache.Dir)
}
