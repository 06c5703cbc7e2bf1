package results

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"
)

// DefaultPreviewRows is the row limit used when the caller asks for none.
const DefaultPreviewRows = 100

// Table is a parsed preview of a CSV result.
type Table struct {
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	Truncated bool       `json:"truncated"`
}

// Preview parses the header and at most maxRows data rows of data. Quoting is
// parsed leniently and rows may have any number of fields.
func Preview(data []byte, maxRows int) (*Table, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	table := &Table{Rows: make([][]string, 0)}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	table.Header = header

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", len(table.Rows)+1)
		}
		if len(table.Rows) == maxRows {
			table.Truncated = true
			break
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}
