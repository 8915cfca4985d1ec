package domain

import (
	"fmt"
	"math"
)

// ColumnType identifies how a renderer should treat a column
type ColumnType string

const (
	ColumnTypeString      ColumnType = "string"
	ColumnTypeNumber      ColumnType = "number"
	ColumnTypeCategorical ColumnType = "categorical"

	// Synthetic column types that only appear in rankings
	ColumnTypeRank      ColumnType = "rank"
	ColumnTypeSelection ColumnType = "selection"
)

// IsData reports whether the type describes a dataset column
func (t ColumnType) IsData() bool {
	switch t {
	case ColumnTypeString, ColumnTypeNumber, ColumnTypeCategorical:
		return true
	}
	return false
}

// Domain is the [min, max] extent of a number column.
// A nil bound is unknown and gets backfilled from the data.
type Domain [2]*float64

// NewDomain creates a domain with both bounds known
func NewDomain(min, max float64) *Domain {
	return &Domain{Bound(min), Bound(max)}
}

// Bound returns a pointer to v, or nil when v is NaN or infinite
func Bound(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Min returns the lower bound and whether it is known
func (d *Domain) Min() (float64, bool) {
	if d == nil || d[0] == nil || math.IsNaN(*d[0]) {
		return math.NaN(), false
	}
	return *d[0], true
}

// Max returns the upper bound and whether it is known
func (d *Domain) Max() (float64, bool) {
	if d == nil || d[1] == nil || math.IsNaN(*d[1]) {
		return math.NaN(), false
	}
	return *d[1], true
}

// Complete reports whether both bounds are known
func (d *Domain) Complete() bool {
	_, okMin := d.Min()
	_, okMax := d.Max()
	return okMin && okMax
}

// String renders the domain for logs and terminal output
func (d *Domain) String() string {
	format := func(v float64, ok bool) string {
		if !ok {
			return "?"
		}
		return fmt.Sprintf("%g", v)
	}
	lo, okLo := d.Min()
	hi, okHi := d.Max()
	return "[" + format(lo, okLo) + ", " + format(hi, okHi) + "]"
}

// UnmarshalYAML accepts a two element sequence where either element may be
// null. Infinite bounds are treated as unknown.
func (d *Domain) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []*float64
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("domain must have exactly 2 bounds, got %d", len(raw))
	}
	for i, b := range raw {
		d[i] = nil
		if b != nil {
			d[i] = Bound(*b)
		}
	}
	return nil
}

// ColumnDescriptor describes a single column for the renderer
type ColumnDescriptor struct {
	Label      string     `json:"label" yaml:"label"`
	Column     string     `json:"column" yaml:"column"`
	Type       ColumnType `json:"type" yaml:"type" validate:"required,oneof=string number categorical"`
	Domain     *Domain    `json:"domain,omitempty" yaml:"domain,omitempty"`
	Categories []string   `json:"categories,omitempty" yaml:"categories,omitempty"`
	Color      string     `json:"color,omitempty" yaml:"color,omitempty" validate:"omitempty,hexcolor"`
}

// Key identifies a descriptor within a description
func (c ColumnDescriptor) Key() string {
	return string(c.Type) + ":" + c.Column
}

// Description is the schema of one view: its columns plus the primary key
type Description struct {
	Separator  string             `json:"separator,omitempty" yaml:"separator,omitempty"`
	PrimaryKey string             `json:"primaryKey" yaml:"primaryKey"`
	Columns    []ColumnDescriptor `json:"columns" yaml:"columns" validate:"dive"`
}

// Lookup finds the descriptor for a column name
func (d Description) Lookup(column string) (ColumnDescriptor, bool) {
	for _, col := range d.Columns {
		if col.Column == column {
			return col, true
		}
	}
	return ColumnDescriptor{}, false
}

// ColumnNames returns the column names in description order
func (d Description) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		names = append(names, col.Column)
	}
	return names
}
