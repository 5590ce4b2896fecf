package table

import (
	"math"
	"sort"
)

// Merge reconciles a newly confirmed batch into an existing dataset.
//
// Rows are grouped by the primary key column of the existing dataset.
// For keys present on both sides the incoming row wins column by column,
// except that a null incoming value never erases existing data. Rows
// with a null primary key cannot be placed and are dropped from both
// sides. The result is re-sorted ascending by the numeric interpretation
// of the key; rows whose key fails numeric coercion compare equal and
// keep their insertion order.
//
// Neither argument is mutated.
func Merge(existing, incoming Dataset) Dataset {
	if incoming.IsEmpty() {
		return existing
	}
	if existing.IsEmpty() {
		return incoming
	}

	keyCol := existing.KeyColumn()
	if keyCol == "" {
		// No key to group on, the batch replaces the dataset outright.
		return incoming
	}

	columns := mergeColumns(existing.Columns, incoming.Columns)

	index := make(map[string]Row, len(existing.Rows)+len(incoming.Rows))
	order := make([]string, 0, len(existing.Rows)+len(incoming.Rows))

	for _, row := range existing.Rows {
		key, ok := canonicalKey(row[keyCol].Value)
		if !ok {
			continue
		}
		if _, seen := index[key]; !seen {
			order = append(order, key)
		}
		index[key] = row.Clone()
	}

	for _, row := range incoming.Rows {
		key, ok := canonicalKey(row[keyCol].Value)
		if !ok {
			continue
		}
		current, seen := index[key]
		if !seen {
			index[key] = row.Clone()
			order = append(order, key)
			continue
		}
		for _, col := range rowColumns(incoming, row) {
			cell, present := row[col]
			if !present || cell.Value.IsNull() {
				continue
			}
			current[col] = cell
		}
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		rows = append(rows, index[key])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a := keyNumber(rows[i][keyCol].Value)
		b := keyNumber(rows[j][keyCol].Value)
		if math.IsNaN(a) || math.IsNaN(b) {
			return false
		}
		return a < b
	})

	return Dataset{Columns: columns, Rows: rows}
}

// keyNumber is the sort key for a primary key value, NaN when the value
// does not coerce.
func keyNumber(v Value) float64 {
	if f, ok := v.Float(); ok {
		return f
	}
	return math.NaN()
}

// mergeColumns unions two ordered column sets, existing order first.
func mergeColumns(existing, incoming []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, col := range existing {
		seen[col] = true
	}
	for _, col := range incoming {
		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	}
	return out
}

// rowColumns yields the columns to visit for an incoming row, using the
// dataset's declared order when it has one.
func rowColumns(ds Dataset, row Row) []string {
	if len(ds.Columns) > 0 {
		return ds.Columns
	}
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
