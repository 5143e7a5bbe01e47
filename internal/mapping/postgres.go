package mapping

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
	"github.com/petercarbsmith/ca-biositing/internal/db"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres opens a connection pool against the given DSN.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: parse postgres config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "mapping: ping postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests and the ETL,
// which share one pool across stores).
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying pool for collaborators like the census load.
func (s *PostgresStore) Pool() db.Pool { return s.pool }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "mapping: migrate postgres schema")
	}
	return nil
}

const listResourcesSQL = `
SELECT id, name FROM primary_ag_product WHERE name IS NOT NULL ORDER BY name`

const listRawResourcesSQL = `
SELECT id, name FROM resource WHERE name IS NOT NULL ORDER BY name`

func (s *PostgresStore) ListResources(ctx context.Context) ([]commodity.Resource, error) {
	var out []commodity.Resource

	collect := func(sql string, kind commodity.ResourceKind) error {
		rows, err := s.pool.Query(ctx, sql)
		if err != nil {
			return eris.Wrapf(err, "mapping: list %s", kind)
		}
		defer rows.Close()

		for rows.Next() {
			r := commodity.Resource{Kind: kind}
			if err := rows.Scan(&r.ID, &r.Name); err != nil {
				return eris.Wrapf(err, "mapping: scan %s row", kind)
			}
			out = append(out, r)
		}
		return eris.Wrapf(rows.Err(), "mapping: iterate %s rows", kind)
	}

	if err := collect(listResourcesSQL, commodity.KindPrimaryAgProduct); err != nil {
		return nil, err
	}
	if err := collect(listRawResourcesSQL, commodity.KindResource); err != nil {
		return nil, err
	}
	return out, nil
}

const selectCommodityIDSQL = `
SELECT id FROM usda_commodity WHERE usda_code = $1`

const insertCommoditySQL = `
INSERT INTO usda_commodity (name, usda_code, usda_source, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (usda_code) DO NOTHING
RETURNING id`

func (s *PostgresStore) EnsureCommodity(ctx context.Context, c commodity.Commodity) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, selectCommodityIDSQL, c.Code).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, eris.Wrapf(err, "mapping: look up commodity %s", c.Code)
	}

	err = s.pool.QueryRow(ctx, insertCommoditySQL, c.Name, c.Code, c.Source).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, eris.Wrapf(err, "mapping: insert commodity %s", c.Code)
	}

	// DO NOTHING returned no row: a concurrent insert won the race.
	if err := s.pool.QueryRow(ctx, selectCommodityIDSQL, c.Code).Scan(&id); err != nil {
		return 0, false, eris.Wrapf(err, "mapping: re-read commodity %s after conflict", c.Code)
	}
	return id, false, nil
}

const mappingExistsByResourceSQL = `
SELECT EXISTS (
	SELECT 1 FROM resource_usda_commodity_map
	WHERE resource_id = $1 AND usda_commodity_id = $2)`

const mappingExistsByProductSQL = `
SELECT EXISTS (
	SELECT 1 FROM resource_usda_commodity_map
	WHERE primary_ag_product_id = $1 AND usda_commodity_id = $2)`

func (s *PostgresStore) MappingExists(ctx context.Context, res commodity.Resource, commodityID int64) (bool, error) {
	var sql string
	switch res.Kind {
	case commodity.KindResource:
		sql = mappingExistsByResourceSQL
	case commodity.KindPrimaryAgProduct:
		sql = mappingExistsByProductSQL
	default:
		return false, eris.Errorf("mapping: unknown resource kind %q", res.Kind)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, sql, res.ID, commodityID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "mapping: check mapping for resource %d", res.ID)
	}
	return exists, nil
}

const insertMappingByResourceSQL = `
INSERT INTO resource_usda_commodity_map
	(resource_id, usda_commodity_id, match_tier, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())`

const insertMappingByProductSQL = `
INSERT INTO resource_usda_commodity_map
	(primary_ag_product_id, usda_commodity_id, match_tier, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())`

func (s *PostgresStore) InsertMapping(ctx context.Context, res commodity.Resource, commodityID int64, tier, note string) error {
	var sql string
	switch res.Kind {
	case commodity.KindResource:
		sql = insertMappingByResourceSQL
	case commodity.KindPrimaryAgProduct:
		sql = insertMappingByProductSQL
	default:
		return eris.Errorf("mapping: unknown resource kind %q", res.Kind)
	}

	if _, err := s.pool.Exec(ctx, sql, res.ID, commodityID, tier, note); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return eris.Wrapf(ErrDuplicate, "resource %d -> commodity %d", res.ID, commodityID)
		}
		return eris.Wrapf(err, "mapping: insert mapping for resource %d", res.ID)
	}
	return nil
}

const mappedCodesSQL = `
SELECT DISTINCT c.usda_code
FROM usda_commodity c
JOIN resource_usda_commodity_map m ON m.usda_commodity_id = c.id
ORDER BY c.usda_code`

func (s *PostgresStore) MappedCommodityCodes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, mappedCodesSQL)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: list mapped commodity codes")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, eris.Wrap(err, "mapping: scan commodity code")
		}
		codes = append(codes, code)
	}
	return codes, eris.Wrap(rows.Err(), "mapping: iterate commodity codes")
}
