package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cell is a single value in a column. Raw keeps the value exactly as the
// caller decoded it; Null marks values that were absent in the source
// (JSON null, empty CSV cell, recognized missing tokens).
type Cell struct {
	Raw  string `json:"raw"`
	Null bool   `json:"null,omitempty"`
}

// missingTokens are treated as null on ingestion, matching what pandas
// recognizes as NaN when reading CSV files.
var missingTokens = map[string]bool{
	"":     true,
	"null": true,
	"nan":  true,
	"na":   true,
	"n/a":  true,
}

// NewCell builds a cell from a raw string, marking recognized missing tokens
// as null.
func NewCell(raw string) Cell {
	if missingTokens[strings.ToLower(strings.TrimSpace(raw))] {
		return Cell{Null: true}
	}
	return Cell{Raw: raw}
}

// NullCell returns an explicitly absent cell.
func NullCell() Cell {
	return Cell{Null: true}
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string `json:"name"`
	Cells []Cell `json:"cells"`
}

// MissingCount returns the number of null cells in the column.
func (c Column) MissingCount() int {
	count := 0
	for _, cell := range c.Cells {
		if cell.Null {
			count++
		}
	}
	return count
}

// IsNumeric reports whether the column classifies as numeric: at least one
// non-missing value, and every non-missing value parses as a number.
// A column with no parseable values is categorical.
func (c Column) IsNumeric() bool {
	seen := false
	for _, cell := range c.Cells {
		if cell.Null {
			continue
		}
		if _, ok := parseNumber(cell.Raw); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// NumericValues materializes the column as floats in row order, with NaN in
// missing or unparseable positions.
func (c Column) NumericValues() []float64 {
	values := make([]float64, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.Null {
			values[i] = math.NaN()
			continue
		}
		v, ok := parseNumber(cell.Raw)
		if !ok {
			values[i] = math.NaN()
			continue
		}
		values[i] = v
	}
	return values
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Table is a column-oriented dataset: ordered named columns of equal length.
type Table struct {
	columns []Column
	index   map[string]int
}

// New validates and builds a table. Column names must be unique and all
// columns must have the same length. A zero-column table is structurally
// valid here; the profiler rejects it.
func New(columns []Column) (*Table, error) {
	index := make(map[string]int, len(columns))
	rowCount := -1
	for i, col := range columns {
		if strings.TrimSpace(col.Name) == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, exists := index[col.Name]; exists {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		index[col.Name] = i
		if rowCount == -1 {
			rowCount = len(col.Cells)
		} else if len(col.Cells) != rowCount {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", col.Name, len(col.Cells), rowCount)
		}
	}
	return &Table{columns: columns, index: index}, nil
}

// RowCount returns the number of rows (0 for an empty table).
func (t *Table) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Cells)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// Names returns column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Columns returns all columns in table order.
func (t *Table) Columns() []Column {
	return t.columns
}

// Classification partitions the table's column names into numeric and
// categorical sets. The partition is total and disjoint.
type Classification struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// Classify scans every value of every column (exhaustive, exact) and
// partitions the columns. Order follows table column order.
func (t *Table) Classify() Classification {
	var c Classification
	for _, col := range t.columns {
		if col.IsNumeric() {
			c.Numeric = append(c.Numeric, col.Name)
		} else {
			c.Categorical = append(c.Categorical, col.Name)
		}
	}
	return c
}
