package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LookupStatus classifies the outcome of a volume lookup. Every outcome
// is a routine status the caller can render, never an error.
type LookupStatus string

const (
	StatusExact        LookupStatus = "exact"
	StatusInterpolated LookupStatus = "interpolated"
	StatusNearest      LookupStatus = "nearest"
	StatusNonNumeric   LookupStatus = "non-numeric"
	StatusNotFound     LookupStatus = "not-found"
	StatusInvalidInput LookupStatus = "invalid-input"
	StatusUnavailable  LookupStatus = "unavailable"
)

// LookupResult is the answer to a height-to-volume query. Value is null
// for statuses that carry no reading.
type LookupResult struct {
	Status LookupStatus `json:"status"`
	Value  Value        `json:"value"`
	Note   string       `json:"note,omitempty"`
}

// CalculateRaw parses a user-entered height and delegates to Calculate.
// Input that does not parse as a number yields invalid-input.
func CalculateRaw(ds Dataset, targetColumn, rawHeight string) LookupResult {
	f, err := strconv.ParseFloat(strings.TrimSpace(rawHeight), 64)
	if err != nil {
		return LookupResult{Status: StatusInvalidInput}
	}
	return Calculate(ds, targetColumn, f)
}

// Calculate answers a volume query against the dataset's height column
// (its primary key column): an exact reading when the height is known, a
// linear interpolation between the nearest known heights bounding the
// query, or the nearest known reading when the query lies outside the
// table's range.
//
// Exact lookups go through a keyed index of numeric heights; finding
// the bounding pair and the nearest-reading fallback scan the keys.
func Calculate(ds Dataset, targetColumn string, height float64) LookupResult {
	if ds.IsEmpty() || !hasColumn(ds, targetColumn) {
		return LookupResult{Status: StatusUnavailable}
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return LookupResult{Status: StatusInvalidInput}
	}

	keyCol := ds.KeyColumn()

	// First row with a given numeric height wins, matching the
	// first-encountered policy of the fallback scan.
	byHeight := make(map[float64]Row, len(ds.Rows))
	for _, row := range ds.Rows {
		h, ok := row[keyCol].Value.Float()
		if !ok {
			continue
		}
		if _, seen := byHeight[h]; !seen {
			byHeight[h] = row
		}
	}

	if row, ok := byHeight[height]; ok {
		return LookupResult{
			Status: StatusExact,
			Value:  row[targetColumn].Value,
			Note:   fmt.Sprintf("exact reading at height %s", formatHeight(height)),
		}
	}

	// Bound the query by the closest known height on each side. A query
	// outside the table's range has only one side and falls through to
	// the nearest-reading scan.
	lower := math.Inf(-1)
	upper := math.Inf(1)
	for h := range byHeight {
		if h < height && h > lower {
			lower = h
		}
		if h > height && h < upper {
			upper = h
		}
	}
	if !math.IsInf(lower, -1) && !math.IsInf(upper, 1) {
		lowVal, lowNum := byHeight[lower][targetColumn].Value.Float()
		highVal, highNum := byHeight[upper][targetColumn].Value.Float()
		if !lowNum || !highNum {
			return LookupResult{
				Status: StatusNonNumeric,
				Note: fmt.Sprintf("readings at heights %s and %s are not numeric",
					formatHeight(lower), formatHeight(upper)),
			}
		}
		fraction := (height - lower) / (upper - lower)
		interpolated := lowVal + (highVal-lowVal)*fraction
		rounded := math.Round(interpolated*100) / 100
		return LookupResult{
			Status: StatusInterpolated,
			Value:  NumberValue(rounded),
			Note: fmt.Sprintf("interpolated between heights %s and %s",
				formatHeight(lower), formatHeight(upper)),
		}
	}

	// Nearest-neighbor fallback, stable left-to-right scan.
	var (
		bestRow    Row
		bestHeight float64
		bestDiff   = math.Inf(1)
	)
	for _, row := range ds.Rows {
		h, ok := row[keyCol].Value.Float()
		if !ok {
			continue
		}
		diff := math.Abs(h - height)
		if diff < bestDiff {
			bestDiff = diff
			bestRow = row
			bestHeight = h
		}
	}
	if bestRow == nil {
		return LookupResult{Status: StatusNotFound}
	}
	return LookupResult{
		Status: StatusNearest,
		Value:  bestRow[targetColumn].Value,
		Note:   fmt.Sprintf("nearest reading is at height %s", formatHeight(bestHeight)),
	}
}

func hasColumn(ds Dataset, name string) bool {
	for _, col := range ds.Columns {
		if col == name {
			return true
		}
	}
	return false
}

func formatHeight(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
