// Package table holds the dataset model and the two pure engines that
// operate on it: the row reconciler (Merge) and the volume interpolator
// (Calculate). Nothing in this package does I/O or keeps state; callers
// own persistence and mutation ordering.
package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Confidence records the provenance of a cell value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	// ConfidenceUser marks a manually corrected value.
	ConfidenceUser Confidence = "user"
)

// NormalizeConfidence maps arbitrary tier strings onto a known tier.
// Unknown tiers become low rather than failing the whole batch.
func NormalizeConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceUser:
		return ConfidenceUser
	default:
		return ConfidenceLow
	}
}

// Kind discriminates the cell value union.
type Kind int

const (
	Empty Kind = iota
	Number
	Text
)

// Value is a cell scalar: a number, free text, or nothing. The zero
// Value is Empty. On the wire it is exactly `number | string | null`.
type Value struct {
	kind Kind
	num  float64
	text string
}

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value {
	return Value{kind: Number, num: f}
}

// TextValue returns a textual Value.
func TextValue(s string) Value {
	return Value{kind: Text, text: s}
}

// Kind reports which arm of the union this value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value holds no reading.
func (v Value) IsNull() bool {
	return v.kind == Empty
}

// Float coerces the value to a number. Text coerces when it parses as a
// float after trimming; Empty never coerces.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		return v.num, true
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the raw value for display and CSV export. Empty renders
// as the empty string.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Text:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON encodes the value as a bare number, string, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		return json.Marshal(v.num)
	case Text:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a bare number, string, or null. Anything else
// (objects, arrays, booleans) is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = NumberValue(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextValue(s)
		return nil
	}
	return fmt.Errorf("cell value must be a number, string, or null, got %s", trimmed)
}

// Cell pairs a value with its provenance.
type Cell struct {
	Value      Value      `json:"value"`
	Confidence Confidence `json:"confidence"`
}

// Row maps column name to cell. Column order lives on the Dataset.
type Row map[string]Cell

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for col, cell := range r {
		out[col] = cell
	}
	return out
}

// Dataset is an ordered table of rows sharing one column set. Columns
// carries the column order (JSON objects lose it); the first column is
// the primary key, conventionally the wet-height measurement.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// KeyColumn returns the primary key column name, or "" when the dataset
// has no columns.
func (d Dataset) KeyColumn() string {
	if len(d.Columns) == 0 {
		return ""
	}
	return d.Columns[0]
}

// IsEmpty reports whether the dataset has no rows.
func (d Dataset) IsEmpty() bool {
	return len(d.Rows) == 0
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([]Row, 0, len(d.Rows)),
	}
	for _, row := range d.Rows {
		out.Rows = append(out.Rows, row.Clone())
	}
	return out
}

// canonicalKey reduces a primary key value to a single map key so that
// the number 25 and the text "25" identify the same row. Returns false
// for null values, which cannot key a row.
func canonicalKey(v Value) (string, bool) {
	if v.IsNull() {
		return "", false
	}
	if f, ok := v.Float(); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return strings.TrimSpace(v.String()), true
}
