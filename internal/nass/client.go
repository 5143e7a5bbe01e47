// Package nass is a thin client for the USDA NASS Quick Stats API
// (https://quickstats.nass.usda.gov/api). It fetches raw tabular records
// and reduces them to the unique commodity vocabulary; everything
// interesting happens downstream.
package nass

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

// DefaultBaseURL is the Quick Stats endpoint root.
const DefaultBaseURL = "https://quickstats.nass.usda.gov/api"

// Source tags vocabulary entries created from this API.
const Source = "NASS"

// Record is one raw Quick Stats row. The API returns every field as a
// string, including numbers.
type Record struct {
	CommodityCode string `json:"commodity_code"`
	CommodityDesc string `json:"commodity_desc"`
	ShortDesc     string `json:"short_desc"`
	StatisticCat  string `json:"statisticcat_desc"`
	StateAlpha    string `json:"state_alpha"`
	StateFIPS     string `json:"state_fips_code"`
	CountyCode    string `json:"county_code"`
	Year          string `json:"year"`
	Value         string `json:"Value"`
	Unit          string `json:"unit_desc"`
	SourceDesc    string `json:"source_desc"`
}

// Options configures the client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int

	// RequestsPerSec throttles API calls; the upstream asks for courtesy
	// pacing rather than enforcing a hard limit.
	RequestsPerSec float64
}

// Client queries the Quick Stats API with retry and rate limiting.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a Quick Stats client. The API key is required; key
// validation errors surface on the first request.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, eris.New("nass: api key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 2
	}

	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		maxRetries: opts.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		log:        zap.L().With(zap.String("component", "nass")),
	}, nil
}

// Query holds the Quick Stats filter parameters used here.
type Query struct {
	State         string
	Year          int
	CommodityCode string
}

func (q Query) values(apiKey string) url.Values {
	v := url.Values{}
	v.Set("key", apiKey)
	v.Set("format", "JSON")
	if q.State != "" {
		v.Set("state_alpha", q.State)
	}
	if q.Year != 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	if q.CommodityCode != "" {
		v.Set("commodity_code", q.CommodityCode)
	}
	return v
}

// envelope handles both response shapes the API produces: a {"data": [...]}
// wrapper and a bare array, plus the {"error": ...} payload it returns with
// a 200 status.
type envelope struct {
	Data  []Record        `json:"data"`
	Error json.RawMessage `json:"error"`
}

// Fetch runs one filtered query and returns the raw records.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Record, error) {
	body, err := c.get(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// get performs the HTTP request with rate limiting and retry on 429/5xx.
func (c *Client) get(ctx context.Context, q Query) ([]byte, error) {
	reqURL := c.baseURL + "/api_GET/?" + q.values(c.apiKey).Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "nass: rate limiter")
		}
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.log.Warn("retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "nass: cancelled during backoff")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "nass: build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "nass: request failed")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = eris.Wrap(err, "nass: read response body")
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = eris.Errorf("nass: status %d from API", resp.StatusCode)
			continue
		default:
			return nil, eris.Errorf("nass: status %d from API: %s", resp.StatusCode, truncate(body, 200))
		}
	}
	return nil, eris.Wrapf(lastErr, "nass: giving up after %d retries", c.maxRetries)
}

func decodeRecords(body []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var records []Record
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, eris.Wrap(err, "nass: decode record array")
		}
		return records, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "nass: decode response envelope")
	}
	if len(env.Error) > 0 {
		return nil, eris.Errorf("nass: API error: %s", string(env.Error))
	}
	return env.Data, nil
}

// FetchCatalog queries all records for a state/year and reduces them to the
// unique commodity vocabulary. The first occurrence of a code wins;
// records without a code or name are dropped.
func (c *Client) FetchCatalog(ctx context.Context, state string, year int) ([]commodity.Commodity, error) {
	records, err := c.Fetch(ctx, Query{State: state, Year: year})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	var catalog []commodity.Commodity
	for _, r := range records {
		if r.CommodityCode == "" || r.CommodityDesc == "" || seen[r.CommodityCode] {
			continue
		}
		seen[r.CommodityCode] = true
		desc := r.ShortDesc
		if desc == "" {
			desc = r.CommodityDesc
		}
		catalog = append(catalog, commodity.Commodity{
			Code:        r.CommodityCode,
			Name:        r.CommodityDesc,
			Description: desc,
			Source:      Source,
		})
	}

	c.log.Info("catalog fetched",
		zap.String("state", state),
		zap.Int("year", year),
		zap.Int("records", len(records)),
		zap.Int("commodities", len(catalog)),
	)
	return catalog, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
