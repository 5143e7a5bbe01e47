// Package etl loads county-level USDA census records for mapped
// commodities into the warehouse. Extract pulls Quick Stats rows per
// mapped commodity code, transform normalizes them into census rows,
// and load bulk-upserts them stamped with the run id.
package etl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/petercarbsmith/ca-biositing/internal/db"
)

// Run statuses in etl_run.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Dataset names a run in etl_run.
const Dataset = "usda_census"

// RunEntry represents a row in etl_run.
type RunEntry struct {
	ID          uuid.UUID  `json:"id"`
	Dataset     string     `json:"dataset"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RowsLoaded  int64      `json:"rows_loaded"`
	Error       string     `json:"error,omitempty"`
}

// RunLog provides read/write access to the etl_run table.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a run and returns its id.
func (l *RunLog) Start(ctx context.Context, dataset string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO etl_run (id, dataset, status, started_at)
		 VALUES ($1, $2, $3, now())`,
		id, dataset, StatusRunning,
	)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "etl: start run for %s", dataset)
	}
	return id, nil
}

// Complete marks a run as successfully finished.
func (l *RunLog) Complete(ctx context.Context, runID uuid.UUID, rowsLoaded int64) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE etl_run
		 SET status = $1, completed_at = now(), rows_loaded = $2
		 WHERE id = $3`,
		StatusComplete, rowsLoaded, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "etl: complete run %s", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (l *RunLog) Fail(ctx context.Context, runID uuid.UUID, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE etl_run
		 SET status = $1, completed_at = now(), error = $2
		 WHERE id = $3`,
		StatusFailed, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "etl: fail run %s", runID)
	}
	return nil
}

// LastSuccess returns the most recent completed run, or nil if none.
func (l *RunLog) LastSuccess(ctx context.Context, dataset string) (*RunEntry, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT id, dataset, status, started_at, completed_at, rows_loaded
		 FROM etl_run
		 WHERE dataset = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		dataset, StatusComplete,
	)

	var e RunEntry
	err := row.Scan(&e.ID, &e.Dataset, &e.Status, &e.StartedAt, &e.CompletedAt, &e.RowsLoaded)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "etl: last success for %s", dataset)
	}
	return &e, nil
}
