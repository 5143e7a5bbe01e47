package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	mock := newMockPool(t)
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "usda_census_record",
		Columns:      []string{"geoid"},
		ConflictKeys: []string{"geoid"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_ValidatesConfig(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{{"06019"}}

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{Table: "t", ConflictKeys: []string{"k"}}, rows)
	assert.ErrorContains(t, err, "no columns")

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{Table: "t", Columns: []string{"c"}}, rows)
	assert.ErrorContains(t, err, "no conflict keys")
}

func TestBulkUpsert_DoNothing(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_usda_census_record"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_usda_census_record"}, []string{"geoid", "commodity_code", "year", "statistic"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "usda_census_record" .+ ON CONFLICT \("geoid", "commodity_code", "year", "statistic"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "usda_census_record",
		Columns:      []string{"geoid", "commodity_code", "year", "statistic"},
		ConflictKeys: []string{"geoid", "commodity_code", "year", "statistic"},
		DoNothing:    true,
	}, [][]any{
		{"06019", "26199999", 2022, "AREA HARVESTED"},
		{"06029", "26199999", 2022, "AREA HARVESTED"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_UpdateOnConflict(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_usda_commodity"}, []string{"usda_code", "name"}).WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT \("usda_code"\) DO UPDATE SET "name" = EXCLUDED\."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "usda_commodity",
		Columns:      []string{"usda_code", "name"},
		ConflictKeys: []string{"usda_code"},
	}, [][]any{{"26199999", "ALMONDS"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
