package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind is the inferred element kind of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Column is a single named column of a dataset. Cells are stored as raw
// strings; numeric columns are columns whose non-empty cells all parse as
// floats.
type Column struct {
	name  string
	kind  Kind
	cells []string
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the inferred element kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.cells) }

// Values returns a copy of the raw cell values. Callers get their own slice
// so no engine can mutate the shared snapshot.
func (c *Column) Values() []string {
	out := make([]string, len(c.cells))
	copy(out, c.cells)
	return out
}

// Floats parses every cell as float64. The ok slice marks cells that parsed;
// unparseable cells carry 0 and ok=false. It never fails outright: partial
// numeric columns are the caller's decision to drop or skip.
func (c *Column) Floats() (vals []float64, ok []bool) {
	vals = make([]float64, len(c.cells))
	ok = make([]bool, len(c.cells))
	for i, cell := range c.cells {
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err == nil {
			vals[i] = f
			ok[i] = true
		}
	}
	return vals, ok
}

// DistinctRatio returns unique cell count divided by row count, or 0 for an
// empty column.
func (c *Column) DistinctRatio() float64 {
	if len(c.cells) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(c.cells))
	for _, cell := range c.cells {
		seen[cell] = struct{}{}
	}
	return float64(len(seen)) / float64(len(c.cells))
}

// Dataset is an immutable-for-the-audit tabular snapshot. Engines receive it
// as shared read-only state; derived views are explicit copies.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// FromRecords builds a dataset from column names and row-major string records.
// Column kinds are inferred: a column is numeric when it has at least one
// non-empty cell and every non-empty cell parses as a float.
func FromRecords(names []string, rows [][]string) (*Dataset, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("dataset needs at least one column")
	}
	index := make(map[string]int, len(names))
	cols := make([]*Column, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
		cols[i] = &Column{name: name, cells: make([]string, 0, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r, len(row), len(names))
		}
		for i, cell := range row {
			cols[i].cells = append(cols[i].cells, cell)
		}
	}
	for _, col := range cols {
		col.kind = inferKind(col.cells)
	}
	return &Dataset{columns: cols, index: index, rows: len(rows)}, nil
}

// FromCSV reads a CSV stream whose first record is the header row.
func FromCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV input is empty")
	}
	return FromRecords(records[0], records[1:])
}

func inferKind(cells []string) Kind {
	nonEmpty := 0
	for _, cell := range cells {
		s := strings.TrimSpace(cell)
		if s == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return KindText
		}
	}
	if nonEmpty == 0 {
		return KindText
	}
	return KindNumeric
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// ColumnNames returns the column names in original order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// Column returns the named column, or false when absent.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Columns returns the columns in original order.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// CombinationUniqueness returns the fraction of rows whose value combination
// over the given columns occurs exactly once in the dataset. Unknown column
// names are an error; an empty dataset yields 0.
func (d *Dataset) CombinationUniqueness(names []string) (float64, error) {
	if d.rows == 0 {
		return 0, nil
	}
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return 0, fmt.Errorf("unknown column %q", name)
		}
		cols[i] = c
	}
	counts := make(map[string]int, d.rows)
	keys := make([]string, d.rows)
	var sb strings.Builder
	for r := 0; r < d.rows; r++ {
		sb.Reset()
		for _, c := range cols {
			sb.WriteString(c.cells[r])
			sb.WriteByte('\x1f') // unit separator avoids cell-boundary collisions
		}
		key := sb.String()
		keys[r] = key
		counts[key]++
	}
	unique := 0
	for _, key := range keys {
		if counts[key] == 1 {
			unique++
		}
	}
	return float64(unique) / float64(d.rows), nil
}
