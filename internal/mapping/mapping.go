// Package mapping owns the relational side of commodity reconciliation:
// reading the project's resource tables, resolving or creating usda_commodity
// rows, and idempotently applying approved match decisions to the
// resource_usda_commodity_map table.
package mapping

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

// Match tiers stored on committed mapping rows.
const (
	TierAutoMatch    = "AUTO_MATCH"
	TierUserApproved = "USER_APPROVED"
)

// Anticipated storage failures. Everything else propagates unclassified.
var (
	// ErrDuplicate reports a unique-constraint violation.
	ErrDuplicate = eris.New("mapping: duplicate row")
	// ErrNotFound reports a missing row.
	ErrNotFound = eris.New("mapping: not found")
)

// Store is the persistence interface the committer and the ETL extract
// depend on. Implementations exist for postgres (production) and sqlite
// (local runs and tests). Every mutation is a single atomic statement, so
// a crash between decisions never leaves a partially applied decision.
type Store interface {
	// ListResources returns all named resources and primary ag products,
	// unioned, each tagged with the kind that selects its mapping column.
	ListResources(ctx context.Context) ([]commodity.Resource, error)

	// EnsureCommodity resolves a vocabulary entry to its row id, inserting
	// it if absent. Safe under concurrent callers: the unique constraint on
	// usda_code decides races, and the loser re-reads.
	EnsureCommodity(ctx context.Context, c commodity.Commodity) (id int64, created bool, err error)

	// MappingExists reports whether the resource already maps to the
	// commodity row.
	MappingExists(ctx context.Context, res commodity.Resource, commodityID int64) (bool, error)

	// InsertMapping writes one mapping row, choosing the foreign-key column
	// from the resource kind. Returns ErrDuplicate when the uniqueness
	// constraint rejects the row.
	InsertMapping(ctx context.Context, res commodity.Resource, commodityID int64, tier, note string) error

	// MappedCommodityCodes returns the distinct external codes that have at
	// least one committed mapping, for the census extract.
	MappedCommodityCodes(ctx context.Context) ([]string, error)

	// Migrate brings the schema up to date.
	Migrate(ctx context.Context) error

	Close() error
}
