package commodity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []Commodity{
	{Code: "26199999", Name: "Almonds", Source: "NASS"},
	{Code: "37899999", Name: "Tomatoes", Source: "NASS"},
	{Code: "10199999", Name: "Wheat", Source: "NASS"},
	{Code: "26299999", Name: "Walnuts", Source: "NASS"},
}

func TestRank_SortedDescending(t *testing.T) {
	got := Rank("Almond", testCatalog, 10)
	require.Len(t, got, len(testCatalog))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	assert.Equal(t, "26199999", got[0].Commodity.Code)
}

func TestRank_Truncates(t *testing.T) {
	got := Rank("Almond", testCatalog, 2)
	assert.Len(t, got, 2)
}

func TestRank_EmptyCatalog(t *testing.T) {
	assert.Empty(t, Rank("Almond", nil, 5))
	assert.Empty(t, Rank("Almond", []Commodity{}, 5))
}

func TestRank_UsesDescriptionWhenBetter(t *testing.T) {
	// The query must not contain the bare name, or the partial-containment
	// floor on the name alone already ties the description-driven score.
	catalog := []Commodity{
		{Code: "1", Name: "BEANS", Description: "BEANS, DRY EDIBLE, LIMA"},
	}
	withDesc := Rank("Dry Edible Lima", catalog, 1)
	withoutDesc := Rank("Dry Edible Lima", []Commodity{{Code: "1", Name: "BEANS"}}, 1)
	require.Len(t, withDesc, 1)
	require.Len(t, withoutDesc, 1)
	assert.Greater(t, withDesc[0].Score, withoutDesc[0].Score)
}

func TestRank_StableOnTies(t *testing.T) {
	catalog := []Commodity{
		{Code: "first", Name: "Wheat"},
		{Code: "second", Name: "Wheat"},
	}
	got := Rank("Wheat", catalog, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Commodity.Code)
	assert.Equal(t, "second", got[1].Commodity.Code)
}

func TestRank_DuplicateCodesBothAppear(t *testing.T) {
	catalog := []Commodity{
		{Code: "10199999", Name: "Wheat"},
		{Code: "10199999", Name: "Wheat, Winter"},
	}
	got := Rank("Wheat", catalog, 5)
	assert.Len(t, got, 2)
}
