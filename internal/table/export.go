package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// CSV renders the dataset as CSV text: one header row from the column
// order, one record per row, cells rendered as their raw values.
func CSV(ds Dataset) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(ds.Columns); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			record[i] = row[col].Value.String()
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return buf.String(), nil
}

// JSON renders the dataset as pretty-printed JSON.
func JSON(ds Dataset) (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling dataset: %w", err)
	}
	return string(data), nil
}
