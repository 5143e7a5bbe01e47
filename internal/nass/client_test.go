package nass

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{"data": [
	{"commodity_code": "26199999", "commodity_desc": "ALMONDS", "short_desc": "ALMONDS - PRODUCTION", "state_alpha": "CA", "county_code": "019", "year": "2022", "Value": "1,234,000", "unit_desc": "TONS", "statisticcat_desc": "PRODUCTION"},
	{"commodity_code": "26199999", "commodity_desc": "ALMONDS", "short_desc": "ALMONDS - ACRES", "state_alpha": "CA", "county_code": "019", "year": "2022", "Value": "500", "unit_desc": "ACRES", "statisticcat_desc": "AREA HARVESTED"},
	{"commodity_code": "15299999", "commodity_desc": "RICE", "short_desc": "RICE - PRODUCTION", "state_alpha": "CA", "county_code": "011", "year": "2022", "Value": "99", "unit_desc": "TONS", "statisticcat_desc": "PRODUCTION"}
]}`

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		MaxRetries:     2,
		RequestsPerSec: 1000,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorContains(t, err, "api key")
}

func TestFetch_QueryParameters(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, sampleBody)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), Query{State: "CA", Year: 2022, CommodityCode: "26199999"})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotQuery["key"])
	assert.Equal(t, "CA", gotQuery["state_alpha"])
	assert.Equal(t, "2022", gotQuery["year"])
	assert.Equal(t, "26199999", gotQuery["commodity_code"])
	assert.Equal(t, "JSON", gotQuery["format"])
}

func TestFetch_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleBody)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	records, err := c.Fetch(context.Background(), Query{State: "CA"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "26199999", records[0].CommodityCode)
	assert.Equal(t, "1,234,000", records[0].Value)
}

func TestFetch_DecodesBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"commodity_code": "15299999", "commodity_desc": "RICE"}]`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	records, err := c.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "RICE", records[0].CommodityDesc)
}

func TestFetch_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": ["unauthorized"]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), Query{})
	assert.ErrorContains(t, err, "unauthorized")
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleBody)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	records, err := c.Fetch(context.Background(), Query{State: "CA"})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), Query{})
	assert.ErrorContains(t, err, "giving up")
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad request: unknown parameter")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), Query{})
	assert.ErrorContains(t, err, "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCatalog_DeduplicatesByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleBody)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	catalog, err := c.FetchCatalog(context.Background(), "CA", 2022)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	// First occurrence of a code wins.
	assert.Equal(t, "26199999", catalog[0].Code)
	assert.Equal(t, "ALMONDS", catalog[0].Name)
	assert.Equal(t, "ALMONDS - PRODUCTION", catalog[0].Description)
	assert.Equal(t, Source, catalog[0].Source)
	assert.Equal(t, "15299999", catalog[1].Code)
}

func TestFetchCatalog_DropsRecordsWithoutCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [
			{"commodity_code": "", "commodity_desc": "MYSTERY"},
			{"commodity_code": "15299999", "commodity_desc": ""},
			{"commodity_code": "26199999", "commodity_desc": "ALMONDS"}
		]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	catalog, err := c.FetchCatalog(context.Background(), "CA", 2022)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "26199999", catalog[0].Code)
	// Falls back to the long name when short_desc is absent.
	assert.Equal(t, "ALMONDS", catalog[0].Description)
}
