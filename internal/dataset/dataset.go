package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when a source has no header row
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrDuplicateColumn is returned when two header cells share a name
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrDuplicateIdentifier is returned by Transpose when row identifiers collide
	ErrDuplicateIdentifier = errors.New("duplicate row identifier")
)

// Dataset is an ordered sequence of rows over a fixed, ordered column set.
// Datasets are immutable once built; every row holds a value for every column.
type Dataset struct {
	Name      string
	Separator string

	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a dataset. Short rows are padded with empty strings and
// surplus cells beyond the header are dropped.
func New(name string, columns []string, records [][]string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyDataset
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, exists := index[col]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col)
		}
		index[col] = i
	}

	rows := make([][]string, len(records))
	for i, record := range records {
		row := make([]string, len(columns))
		copy(row, record)
		rows[i] = row
	}

	return &Dataset{
		Name:    name,
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    rows,
	}, nil
}

// Columns returns a copy of the column names in order
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// HasColumn reports whether the column exists
func (d *Dataset) HasColumn(col string) bool {
	_, ok := d.index[col]
	return ok
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns the i-th row
func (d *Dataset) Row(i int) Row {
	return Row{ds: d, values: d.rows[i]}
}

// Rows returns all rows in order
func (d *Dataset) Rows() []Row {
	rows := make([]Row, len(d.rows))
	for i := range d.rows {
		rows[i] = d.Row(i)
	}
	return rows
}

// Values returns every value of a column in row order
func (d *Dataset) Values(col string) ([]string, bool) {
	idx, ok := d.index[col]
	if !ok {
		return nil, false
	}
	values := make([]string, len(d.rows))
	for i, row := range d.rows {
		values[i] = row[idx]
	}
	return values, true
}

// Records returns the raw cell matrix in column order
func (d *Dataset) Records() [][]string {
	out := make([][]string, len(d.rows))
	for i, row := range d.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Map applies fn to every column name and cell, returning a new dataset
func (d *Dataset) Map(fn func(string) string) (*Dataset, error) {
	columns := make([]string, len(d.columns))
	for i, col := range d.columns {
		columns[i] = fn(col)
	}
	records := make([][]string, len(d.rows))
	for i, row := range d.rows {
		mapped := make([]string, len(row))
		for j, v := range row {
			mapped[j] = fn(v)
		}
		records[i] = mapped
	}
	out, err := New(d.Name, columns, records)
	if err != nil {
		return nil, err
	}
	out.Separator = d.Separator
	return out, nil
}

// Row is a read-only record keyed by the dataset's column names
type Row struct {
	ds     *Dataset
	values []string
}

// Get returns the cell for col, or "" when the column does not exist
func (r Row) Get(col string) string {
	idx, ok := r.ds.index[col]
	if !ok {
		return ""
	}
	return r.values[idx]
}

// Values returns the cells in column order
func (r Row) Values() []string {
	return append([]string(nil), r.values...)
}

// Map converts the row to a plain map for serialization
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for i, col := range r.ds.columns {
		m[col] = r.values[i]
	}
	return m
}
