package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

// rawCell is the wire shape of a single table cell in a model response.
type rawCell struct {
	Value      table.Value `json:"value"`
	Confidence string      `json:"confidence"`
}

// parseTableJSON parses the JSON array of row objects returned by a
// vision model into a dataset batch. Column order is taken from key
// order in the response, first occurrence wins; JSON objects would lose
// it otherwise. A response that is not an array, or an array element
// that is not an object, is a hard failure for the stage.
func parseTableJSON(text string) (*table.Dataset, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON array boundaries - look for first [ and last ]
	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}
	text = text[startIdx : endIdx+1]

	dec := json.NewDecoder(strings.NewReader(text))
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	ds := &table.Dataset{}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return nil, fmt.Errorf("table rows must be JSON objects, got %v", tok)
		}

		row := table.Row{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("decoding response: %w", err)
			}
			col, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("decoding response: unexpected token %v", keyTok)
			}
			var cell rawCell
			if err := dec.Decode(&cell); err != nil {
				return nil, fmt.Errorf("decoding cell %q: %w", col, err)
			}
			row[col] = table.Cell{
				Value:      cell.Value,
				Confidence: table.NormalizeConfidence(cell.Confidence),
			}
			if !seen[col] {
				seen[col] = true
				ds.Columns = append(ds.Columns, col)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return ds, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("response is not a JSON array")
	}
	return nil
}

// encodeBatchJSON renders a batch in the same array-of-row-objects wire
// shape the prompts describe, keys in declared column order, for
// embedding in the verification prompt.
func encodeBatchJSON(ds *table.Dataset) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range ds.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range ds.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(col)
			if err != nil {
				return "", fmt.Errorf("marshaling column name: %w", err)
			}
			cell, err := json.Marshal(row[col])
			if err != nil {
				return "", fmt.Errorf("marshaling cell %q: %w", col, err)
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(cell)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String(), nil
}
