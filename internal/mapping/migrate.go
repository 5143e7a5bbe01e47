package mapping

// postgresSchema creates every table this subsystem touches. The unique
// constraints on usda_commodity.usda_code and on the mapping pairs are
// load-bearing: committer idempotency rests on them, not on application
// logic. The legacy primary_crop_id column name is gone;
// primary_ag_product_id is authoritative.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS primary_ag_product (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS resource (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS usda_commodity (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	usda_code   TEXT NOT NULL UNIQUE,
	usda_source TEXT NOT NULL DEFAULT 'NASS',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS resource_usda_commodity_map (
	id                    BIGSERIAL PRIMARY KEY,
	resource_id           BIGINT REFERENCES resource(id),
	primary_ag_product_id BIGINT REFERENCES primary_ag_product(id),
	usda_commodity_id     BIGINT NOT NULL REFERENCES usda_commodity(id),
	match_tier            TEXT NOT NULL,
	note                  TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (num_nonnulls(resource_id, primary_ag_product_id) = 1),
	UNIQUE (resource_id, usda_commodity_id),
	UNIQUE (primary_ag_product_id, usda_commodity_id)
);

CREATE TABLE IF NOT EXISTS usda_census_record (
	id               BIGSERIAL PRIMARY KEY,
	geoid            TEXT NOT NULL,
	commodity_code   TEXT NOT NULL,
	year             INT NOT NULL,
	statistic        TEXT NOT NULL DEFAULT '',
	value            DOUBLE PRECISION,
	unit             TEXT,
	source_reference TEXT,
	note             TEXT,
	etl_run_id       UUID,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (geoid, commodity_code, year, statistic)
);

CREATE TABLE IF NOT EXISTS etl_run (
	id           UUID PRIMARY KEY,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	rows_loaded  BIGINT NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_commodity_map_commodity ON resource_usda_commodity_map(usda_commodity_id);
CREATE INDEX IF NOT EXISTS idx_census_record_commodity ON usda_census_record(commodity_code, year);
CREATE INDEX IF NOT EXISTS idx_etl_run_dataset ON etl_run(dataset, started_at);
`
