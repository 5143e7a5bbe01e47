package etl

import (
	"strconv"
	"strings"

	"github.com/petercarbsmith/ca-biositing/internal/nass"
)

// CensusRow is a normalized usda_census_record row ready to load.
type CensusRow struct {
	GeoID         string
	CommodityCode string
	Year          int
	Statistic     string
	Value         *float64
	Unit          string
	SourceRef     string
	Note          string
}

// Transform normalizes raw Quick Stats records into census rows. Records
// missing a state or commodity code are dropped; values with thousands
// separators are parsed, and values NASS suppresses (e.g. "(D)") load as
// null with the record kept. Duplicate (geoid, code, year, statistic)
// tuples keep the first occurrence.
func Transform(records []nass.Record, defaultYear int) []CensusRow {
	type key struct {
		geoid, code, stat string
		year              int
	}
	seen := make(map[key]bool, len(records))

	rows := make([]CensusRow, 0, len(records))
	for _, r := range records {
		state := strings.ToUpper(strings.TrimSpace(r.StateAlpha))
		code := strings.TrimSpace(r.CommodityCode)
		if state == "" || code == "" {
			continue
		}

		year := defaultYear
		if y, err := strconv.Atoi(strings.TrimSpace(r.Year)); err == nil {
			year = y
		}

		row := CensusRow{
			GeoID:         geoid(r.StateFIPS, r.CountyCode),
			CommodityCode: code,
			Year:          year,
			Statistic:     strings.TrimSpace(r.StatisticCat),
			Value:         parseValue(r.Value),
			Unit:          strings.TrimSpace(r.Unit),
			SourceRef:     strings.TrimSpace(r.SourceDesc),
			Note:          r.ShortDesc,
		}

		k := key{row.GeoID, row.CommodityCode, row.Statistic, row.Year}
		if seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, row)
	}
	return rows
}

// geoid builds the STATE_FIPS + COUNTY identifier. State-level records
// have no county code and keep the bare state FIPS.
func geoid(stateFIPS, county string) string {
	return strings.TrimSpace(stateFIPS) + strings.TrimSpace(county)
}

// parseValue parses a NASS value string, stripping comma separators.
// Suppressed or non-numeric values return nil.
func parseValue(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
