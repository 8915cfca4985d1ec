package schema

import (
	"math"
	"sort"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// MinCategoricalLimit is the smallest number of distinct values a
// categorical column may always have, regardless of row count.
const MinCategoricalLimit = 20

// CategoricalRatio is the share of rows that may be distinct in a categorical column
const CategoricalRatio = 0.2

// CategoricalLimit returns the maximum number of distinct values for a
// categorical column over rows rows.
func CategoricalLimit(rows int) float64 {
	return math.Max(MinCategoricalLimit, CategoricalRatio*float64(rows))
}

// Derive infers a description for columns of ds.
// The type of each column is decided from the first row alone: a numeric
// first value makes a number column even when later values are not, and an
// empty first value never does. Derive does not fail; unknown column names
// are described from empty values.
func Derive(columns []string, ds *dataset.Dataset) domain.Description {
	desc := domain.Description{
		Separator: ds.Separator,
		Columns:   make([]domain.ColumnDescriptor, 0, len(columns)),
	}
	if len(columns) > 0 {
		desc.PrimaryKey = columns[0]
	}

	for _, col := range columns {
		desc.Columns = append(desc.Columns, deriveColumn(col, ds))
	}
	return desc
}

func deriveColumn(col string, ds *dataset.Dataset) domain.ColumnDescriptor {
	r := domain.ColumnDescriptor{
		Label:  col,
		Column: col,
		Type:   domain.ColumnTypeString,
	}

	values, ok := ds.Values(col)
	if !ok {
		values = make([]string, ds.Len())
	}

	if len(values) > 0 && IsNumeric(values[0]) {
		r.Type = domain.ColumnTypeNumber
		r.Domain = Extent(values)
		return r
	}

	categories := Distinct(values)
	if float64(len(categories)) <= CategoricalLimit(len(values)) {
		r.Type = domain.ColumnTypeCategorical
		r.Categories = categories
	}
	return r
}

// Extent returns the [min, max] of the non-empty values that convert to a
// finite number. Bounds are nil when no value converts.
func Extent(values []string) *domain.Domain {
	lo, hi := math.NaN(), math.NaN()
	for _, v := range values {
		if len(v) == 0 {
			continue
		}
		f := ToNumber(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if math.IsNaN(lo) || f < lo {
			lo = f
		}
		if math.IsNaN(hi) || f > hi {
			hi = f
		}
	}
	return &domain.Domain{domain.Bound(lo), domain.Bound(hi)}
}

// Distinct returns the sorted set of raw values
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
