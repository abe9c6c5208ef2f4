package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"datapulse/domain/table"

	"github.com/xuri/excelize/v2"
)

// Decode materializes uploaded file bytes into a column-oriented table.
// The format is chosen by file extension: csv, json (array of records), or
// xlsx. Decoding errors are the caller's to surface; the analysis core only
// ever sees a structurally valid table.
func Decode(filename string, data []byte) (*table.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return DecodeCSV(bytes.NewReader(data))
	case ".json":
		return DecodeJSON(data)
	case ".xlsx":
		return DecodeXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
}

// SupportedExtension reports whether the filename carries a decodable
// extension.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".json", ".xlsx":
		return true
	}
	return false
}

// DecodeCSV reads a headered CSV stream. Short rows are padded with nulls so
// all columns keep equal length.
func DecodeCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]table.Column, len(header))
	for i, name := range header {
		columns[i] = table.Column{Name: strings.TrimSpace(name)}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		for i := range columns {
			if i < len(record) {
				columns[i].Cells = append(columns[i].Cells, table.NewCell(record[i]))
			} else {
				columns[i].Cells = append(columns[i].Cells, table.NullCell())
			}
		}
	}

	return table.New(columns)
}

// DecodeJSON reads an array of flat JSON records. Column order follows key
// order in the first record; keys that only appear later are appended in
// first-seen order. Absent keys and JSON nulls become null cells.
func DecodeJSON(data []byte) (*table.Table, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse json records: %w", err)
	}

	order, err := keyOrder(data)
	if err != nil {
		return nil, err
	}

	columns := make([]table.Column, 0, len(order))
	index := make(map[string]int, len(order))
	for _, name := range order {
		index[name] = len(columns)
		columns = append(columns, table.Column{Name: name, Cells: make([]table.Cell, len(records))})
	}

	for row, record := range records {
		for name, raw := range record {
			columns[index[name]].Cells[row] = jsonCell(raw)
		}
		for _, name := range order {
			if _, ok := record[name]; !ok {
				columns[index[name]].Cells[row] = table.NullCell()
			}
		}
	}

	return table.New(columns)
}

// keyOrder walks the JSON token stream to preserve the key order the
// records were written in, which encoding/json maps discard.
func keyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("json upload must be an array of records")
	}

	var order []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse json record: %w", err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return nil, fmt.Errorf("json records must be objects")
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to parse json key: %w", err)
			}
			key := keyTok.(string)
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
			var discard json.RawMessage
			if err := dec.Decode(&discard); err != nil {
				return nil, fmt.Errorf("failed to parse json value: %w", err)
			}
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, fmt.Errorf("failed to parse json record: %w", err)
		}
	}
	return order, nil
}

func jsonCell(raw json.RawMessage) table.Cell {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return table.NullCell()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return table.NullCell()
		}
		return table.Cell{Raw: s}
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return table.Cell{Raw: strconv.FormatFloat(f, 'f', -1, 64)}
	}

	// Booleans, nested arrays and objects keep their literal form and
	// classify as categorical.
	return table.Cell{Raw: trimmed}
}

// DecodeXLSX reads the first sheet of an Excel workbook, first row as
// header.
func DecodeXLSX(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("Excel sheet %s is empty", sheets[0])
	}

	header := rows[0]
	columns := make([]table.Column, len(header))
	for i, name := range header {
		columns[i] = table.Column{Name: strings.TrimSpace(name)}
	}

	for _, row := range rows[1:] {
		for i := range columns {
			if i < len(row) {
				columns[i].Cells = append(columns[i].Cells, table.NewCell(row[i]))
			} else {
				columns[i].Cells = append(columns[i].Cells, table.NullCell())
			}
		}
	}

	return table.New(columns)
}
