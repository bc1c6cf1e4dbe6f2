package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

// table is a parsed spreadsheet: normalized headers plus data rows.
// Row numbers follow spreadsheet convention, header is row 1.
type table struct {
	headers []string
	rows    [][]string
}

func (t table) row(i int) row {
	values := t.rows[i]
	r := make(row, len(t.headers))
	for col, h := range t.headers {
		if h == "" {
			continue
		}
		if col < len(values) {
			r[h] = values[col]
		} else {
			r[h] = ""
		}
	}
	return r
}

func (t table) has(header string) bool {
	for _, h := range t.headers {
		if h == header {
			return true
		}
	}
	return false
}

func readTable(kind Kind, data []byte) (table, error) {
	var records [][]string
	var err error
	switch kind {
	case KindCSV:
		records, err = readCSV(data)
	case KindXLSX:
		records, err = readXLSX(data)
	default:
		return table{}, apperr.Schema("unsupported tabular format: %s", kind)
	}
	if err != nil {
		return table{}, err
	}
	if len(records) == 0 {
		return table{}, apperr.Schema("empty file: no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalizeHeader(h)
	}
	return table{headers: headers, rows: records[1:]}, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Schema("unparsable csv: %v", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Schema("unparsable xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Schema("unparsable xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Schema("unparsable xlsx: %v", err)
	}
	return rows, nil
}
