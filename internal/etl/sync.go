package etl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/db"
	"github.com/petercarbsmith/ca-biositing/internal/nass"
)

// Fetcher pulls raw records from the Quick Stats API.
type Fetcher interface {
	Fetch(ctx context.Context, q nass.Query) ([]nass.Record, error)
}

// CodeSource lists the commodity codes worth syncing.
type CodeSource interface {
	MappedCommodityCodes(ctx context.Context) ([]string, error)
}

// censusColumns matches the loadable columns of usda_census_record.
var censusColumns = []string{
	"geoid", "commodity_code", "year", "statistic",
	"value", "unit", "source_reference", "note", "etl_run_id",
}

// Summary tallies one sync run.
type Summary struct {
	RunID       uuid.UUID
	Codes       int
	CodesFailed int
	Fetched     int
	Loaded      int64
}

// Engine runs the census sync: one Quick Stats query per mapped commodity
// code, normalized and bulk-loaded under a logged run.
type Engine struct {
	pool    db.Pool
	fetcher Fetcher
	codes   CodeSource
	runs    *RunLog
	state   string
	year    int
	log     *zap.Logger
}

// NewEngine wires a sync engine. state/year scope every query.
func NewEngine(pool db.Pool, fetcher Fetcher, codes CodeSource, state string, year int) *Engine {
	return &Engine{
		pool:    pool,
		fetcher: fetcher,
		codes:   codes,
		runs:    NewRunLog(pool),
		state:   state,
		year:    year,
		log:     zap.L().With(zap.String("component", "etl")),
	}
}

// Run executes one sync pass. A failure fetching a single code is logged
// and skipped; failures listing codes, loading, or logging the run abort.
// The running tally goes to out for the operator.
func (e *Engine) Run(ctx context.Context, out io.Writer) (Summary, error) {
	codes, err := e.codes.MappedCommodityCodes(ctx)
	if err != nil {
		return Summary{}, eris.Wrap(err, "etl: list mapped codes")
	}
	if len(codes) == 0 {
		fmt.Fprintln(out, "No mapped commodities; nothing to sync.")
		return Summary{}, nil
	}

	if last, err := e.runs.LastSuccess(ctx, Dataset); err != nil {
		e.log.Warn("could not read last run", zap.Error(err))
	} else if last != nil {
		fmt.Fprintf(out, "Last successful sync: %s (%d rows)\n",
			last.StartedAt.Format(time.RFC3339), last.RowsLoaded)
	}

	runID, err := e.runs.Start(ctx, Dataset)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{RunID: runID, Codes: len(codes)}

	var records []nass.Record
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			e.failRun(ctx, runID, err)
			return summary, err
		}

		recs, err := e.fetcher.Fetch(ctx, nass.Query{
			State:         e.state,
			Year:          e.year,
			CommodityCode: code,
		})
		if err != nil {
			e.log.Warn("skipping commodity code: fetch failed",
				zap.String("code", code),
				zap.Error(err),
			)
			fmt.Fprintf(out, "  ! fetch failed for %s, skipping\n", code)
			summary.CodesFailed++
			continue
		}
		fmt.Fprintf(out, "  fetched %d records for %s\n", len(recs), code)
		records = append(records, recs...)
	}
	summary.Fetched = len(records)

	rows := Transform(records, e.year)
	loaded, err := e.load(ctx, runID, rows)
	if err != nil {
		e.failRun(ctx, runID, err)
		return summary, err
	}
	summary.Loaded = loaded

	if err := e.runs.Complete(ctx, runID, loaded); err != nil {
		return summary, err
	}

	fmt.Fprintf(out, "\nLoaded %d of %d records (%d codes, %d failed).\n",
		loaded, len(rows), summary.Codes, summary.CodesFailed)
	e.log.Info("census sync complete",
		zap.String("run_id", runID.String()),
		zap.Int("codes", summary.Codes),
		zap.Int("codes_failed", summary.CodesFailed),
		zap.Int64("loaded", loaded),
	)
	return summary, nil
}

// load bulk-upserts the transformed rows. Re-running the same window is a
// no-op thanks to DO NOTHING against the record's unique constraint.
func (e *Engine) load(ctx context.Context, runID uuid.UUID, rows []CensusRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{
			r.GeoID, r.CommodityCode, r.Year, r.Statistic,
			r.Value, r.Unit, r.SourceRef, r.Note, runID,
		}
	}

	return db.BulkUpsert(ctx, e.pool, db.UpsertConfig{
		Table:        "usda_census_record",
		Columns:      censusColumns,
		ConflictKeys: []string{"geoid", "commodity_code", "year", "statistic"},
		DoNothing:    true,
	}, values)
}

func (e *Engine) failRun(ctx context.Context, runID uuid.UUID, cause error) {
	if err := e.runs.Fail(ctx, runID, cause.Error()); err != nil {
		e.log.Warn("could not mark run failed", zap.String("run_id", runID.String()), zap.Error(err))
	}
}
