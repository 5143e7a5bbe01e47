package mapping

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	sqlite3 "modernc.org/sqlite"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

// SQLITE_CONSTRAINT is the primary result code family for constraint
// violations; extended codes keep it in the low byte.
const sqliteConstraint = 19

// SQLiteStore implements Store on modernc.org/sqlite for local runs and
// isolated tests (":memory:" gives each test its own store).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: open sqlite")
	}
	// Interactive single-operator workflow: one writer is plenty, and it
	// keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "mapping: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the handle for test seeding.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS primary_ag_product (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS resource (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS usda_commodity (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	usda_code   TEXT NOT NULL UNIQUE,
	usda_source TEXT NOT NULL DEFAULT 'NASS',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS resource_usda_commodity_map (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	resource_id           INTEGER REFERENCES resource(id),
	primary_ag_product_id INTEGER REFERENCES primary_ag_product(id),
	usda_commodity_id     INTEGER NOT NULL REFERENCES usda_commodity(id),
	match_tier            TEXT NOT NULL,
	note                  TEXT,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	CHECK ((resource_id IS NULL) != (primary_ag_product_id IS NULL)),
	UNIQUE (resource_id, usda_commodity_id),
	UNIQUE (primary_ag_product_id, usda_commodity_id)
);

CREATE TABLE IF NOT EXISTS usda_census_record (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	geoid            TEXT NOT NULL,
	commodity_code   TEXT NOT NULL,
	year             INTEGER NOT NULL,
	statistic        TEXT NOT NULL DEFAULT '',
	value            REAL,
	unit             TEXT,
	source_reference TEXT,
	note             TEXT,
	etl_run_id       TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (geoid, commodity_code, year, statistic)
);

CREATE TABLE IF NOT EXISTS etl_run (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	rows_loaded  INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "mapping: migrate sqlite schema")
	}
	return nil
}

func (s *SQLiteStore) ListResources(ctx context.Context) ([]commodity.Resource, error) {
	var out []commodity.Resource

	collect := func(table string, kind commodity.ResourceKind) error {
		var query string
		switch table {
		case "primary_ag_product":
			query = `SELECT id, name FROM primary_ag_product WHERE name IS NOT NULL ORDER BY name`
		case "resource":
			query = `SELECT id, name FROM resource WHERE name IS NOT NULL ORDER BY name`
		}

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return eris.Wrapf(err, "mapping: list %s", table)
		}
		defer rows.Close()

		for rows.Next() {
			r := commodity.Resource{Kind: kind}
			if err := rows.Scan(&r.ID, &r.Name); err != nil {
				return eris.Wrapf(err, "mapping: scan %s row", table)
			}
			out = append(out, r)
		}
		return eris.Wrapf(rows.Err(), "mapping: iterate %s rows", table)
	}

	if err := collect("primary_ag_product", commodity.KindPrimaryAgProduct); err != nil {
		return nil, err
	}
	if err := collect("resource", commodity.KindResource); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) EnsureCommodity(ctx context.Context, c commodity.Commodity) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM usda_commodity WHERE usda_code = ?`, c.Code).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, eris.Wrapf(err, "mapping: look up commodity %s", c.Code)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO usda_commodity (name, usda_code, usda_source) VALUES (?, ?, ?)
		 ON CONFLICT (usda_code) DO NOTHING`,
		c.Name, c.Code, c.Source)
	if err != nil {
		return 0, false, eris.Wrapf(err, "mapping: insert commodity %s", c.Code)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// Lost an insert race; the row exists now.
		if err := s.db.QueryRowContext(ctx,
			`SELECT id FROM usda_commodity WHERE usda_code = ?`, c.Code).Scan(&id); err != nil {
			return 0, false, eris.Wrapf(err, "mapping: re-read commodity %s after conflict", c.Code)
		}
		return id, false, nil
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, eris.Wrapf(err, "mapping: new commodity id for %s", c.Code)
	}
	return id, true, nil
}

func (s *SQLiteStore) MappingExists(ctx context.Context, res commodity.Resource, commodityID int64) (bool, error) {
	var query string
	switch res.Kind {
	case commodity.KindResource:
		query = `SELECT EXISTS (
			SELECT 1 FROM resource_usda_commodity_map
			WHERE resource_id = ? AND usda_commodity_id = ?)`
	case commodity.KindPrimaryAgProduct:
		query = `SELECT EXISTS (
			SELECT 1 FROM resource_usda_commodity_map
			WHERE primary_ag_product_id = ? AND usda_commodity_id = ?)`
	default:
		return false, eris.Errorf("mapping: unknown resource kind %q", res.Kind)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, res.ID, commodityID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "mapping: check mapping for resource %d", res.ID)
	}
	return exists, nil
}

func (s *SQLiteStore) InsertMapping(ctx context.Context, res commodity.Resource, commodityID int64, tier, note string) error {
	var query string
	switch res.Kind {
	case commodity.KindResource:
		query = `INSERT INTO resource_usda_commodity_map
			(resource_id, usda_commodity_id, match_tier, note) VALUES (?, ?, ?, ?)`
	case commodity.KindPrimaryAgProduct:
		query = `INSERT INTO resource_usda_commodity_map
			(primary_ag_product_id, usda_commodity_id, match_tier, note) VALUES (?, ?, ?, ?)`
	default:
		return eris.Errorf("mapping: unknown resource kind %q", res.Kind)
	}

	if _, err := s.db.ExecContext(ctx, query, res.ID, commodityID, tier, note); err != nil {
		var sqlErr *sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqliteConstraint {
			return eris.Wrapf(ErrDuplicate, "resource %d -> commodity %d", res.ID, commodityID)
		}
		return eris.Wrapf(err, "mapping: insert mapping for resource %d", res.ID)
	}
	return nil
}

func (s *SQLiteStore) MappedCommodityCodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT c.usda_code
		FROM usda_commodity c
		JOIN resource_usda_commodity_map m ON m.usda_commodity_id = c.id
		ORDER BY c.usda_code`)
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
