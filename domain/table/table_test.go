package table

import (
	"math"
	"testing"
)

func TestNewCellMissingTokens(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		null bool
	}{
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"null token", "null", true},
		{"NULL uppercase", "NULL", true},
		{"nan token", "NaN", true},
		{"na token", "na", true},
		{"n/a token", "N/A", true},
		{"regular value", "42", false},
		{"word containing na", "banana", false},
		{"zero", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := NewCell(tt.raw)
			if cell.Null != tt.null {
				t.Errorf("NewCell(%q).Null = %v, want %v", tt.raw, cell.Null, tt.null)
			}
		})
	}
}

func TestColumnIsNumeric(t *testing.T) {
	tests := []struct {
		name    string
		cells   []Cell
		numeric bool
	}{
		{
			name:    "all integers",
			cells:   []Cell{{Raw: "1"}, {Raw: "2"}, {Raw: "3"}},
			numeric: true,
		},
		{
			name:    "floats with negatives",
			cells:   []Cell{{Raw: "-1.5"}, {Raw: "2.25"}, {Raw: "1e3"}},
			numeric: true,
		},
		{
			name:    "numbers with missing values",
			cells:   []Cell{{Raw: "1"}, {Null: true}, {Raw: "3"}},
			numeric: true,
		},
		{
			name:    "single non-numeric value poisons the column",
			cells:   []Cell{{Raw: "1"}, {Raw: "2"}, {Raw: "abc"}},
			numeric: false,
		},
		{
			name:    "all missing is categorical",
			cells:   []Cell{{Null: true}, {Null: true}},
			numeric: false,
		},
		{
			name:    "empty column is categorical",
			cells:   nil,
			numeric: false,
		},
		{
			name:    "numeric with surrounding whitespace",
			cells:   []Cell{{Raw: " 7 "}, {Raw: "8"}},
			numeric: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := Column{Name: "c", Cells: tt.cells}
			if got := col.IsNumeric(); got != tt.numeric {
				t.Errorf("IsNumeric() = %v, want %v", got, tt.numeric)
			}
		})
	}
}

func TestColumnNumericValues(t *testing.T) {
	col := Column{Name: "x", Cells: []Cell{{Raw: "1.5"}, {Null: true}, {Raw: "oops"}, {Raw: "-2"}}}
	values := col.NumericValues()

	if len(values) != 4 {
		t.Fatalf("expected 4 values, got %d", len(values))
	}
	if values[0] != 1.5 {
		t.Errorf("values[0] = %v, want 1.5", values[0])
	}
	if !math.IsNaN(values[1]) || !math.IsNaN(values[2]) {
		t.Errorf("missing and unparseable positions should be NaN, got %v, %v", values[1], values[2])
	}
	if values[3] != -2 {
		t.Errorf("values[3] = %v, want -2", values[3])
	}
}

func TestNewTableValidation(t *testing.T) {
	t.Run("rejects duplicate column names", func(t *testing.T) {
		_, err := New([]Column{
			{Name: "a", Cells: []Cell{{Raw: "1"}}},
			{Name: "a", Cells: []Cell{{Raw: "2"}}},
		})
		if err == nil {
			t.Fatal("expected error for duplicate column names")
		}
	})

	t.Run("rejects empty column name", func(t *testing.T) {
		_, err := New([]Column{{Name: "  ", Cells: nil}})
		if err == nil {
			t.Fatal("expected error for empty column name")
		}
	})

	t.Run("rejects ragged columns", func(t *testing.T) {
		_, err := New([]Column{
			{Name: "a", Cells: []Cell{{Raw: "1"}, {Raw: "2"}}},
			{Name: "b", Cells: []Cell{{Raw: "1"}}},
		})
		if err == nil {
			t.Fatal("expected error for ragged columns")
		}
	})

	t.Run("accepts zero columns", func(t *testing.T) {
		tbl, err := New(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tbl.RowCount() != 0 || tbl.ColumnCount() != 0 {
			t.Errorf("empty table should report 0 rows and 0 columns")
		}
	})
}

func TestTableClassify(t *testing.T) {
	tbl, err := New([]Column{
		{Name: "age", Cells: []Cell{{Raw: "25"}, {Raw: "30"}, {Null: true}}},
		{Name: "region", Cells: []Cell{{Raw: "north"}, {Raw: "south"}, {Raw: "north"}}},
		{Name: "score", Cells: []Cell{{Raw: "0.5"}, {Raw: "0.7"}, {Raw: "0.9"}}},
		{Name: "mixed", Cells: []Cell{{Raw: "1"}, {Raw: "two"}, {Raw: "3"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := tbl.Classify()

	wantNumeric := []string{"age", "score"}
	wantCategorical := []string{"region", "mixed"}

	if len(c.Numeric) != len(wantNumeric) {
		t.Fatalf("numeric = %v, want %v", c.Numeric, wantNumeric)
	}
	for i, name := range wantNumeric {
		if c.Numeric[i] != name {
			t.Errorf("numeric[%d] = %s, want %s", i, c.Numeric[i], name)
		}
	}
	for i, name := range wantCategorical {
		if c.Categorical[i] != name {
			t.Errorf("categorical[%d] = %s, want %s", i, c.Categorical[i], name)
		}
	}

	if len(c.Numeric)+len(c.Categorical) != tbl.ColumnCount() {
		t.Error("classification must cover every column exactly once")
	}
}

func TestTableColumnLookup(t *testing.T) {
	tbl, err := New([]Column{
		{Name: "a", Cells: []Cell{{Raw: "1"}}},
		{Name: "b", Cells: []Cell{{Raw: "x"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if col, ok := tbl.Column("b"); !ok || col.Name != "b" {
		t.Errorf("Column(b) lookup failed")
	}
	if _, ok := tbl.Column("missing"); ok {
		t.Error("Column(missing) should not be found")
	}
	names := tbl.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}
