package ranking

import (
	"math"
	"sort"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/internal/schema"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// Order returns the row indices of ds in ranking order.
// Number columns sort descending with missing values last, other columns sort
// ascending. Ties keep the dataset order. Without a sort column the dataset
// order is returned.
func (r *Ranking) Order(ds *dataset.Dataset) []int {
	order := make([]int, ds.Len())
	for i := range order {
		order[i] = i
	}

	var sortCol *domain.ColumnDescriptor
	for i := range r.Columns {
		if r.Columns[i].Key == r.SortBy {
			sortCol = &r.Columns[i].Desc
			break
		}
	}
	if sortCol == nil || !sortCol.Type.IsData() {
		return order
	}

	values, ok := ds.Values(sortCol.Column)
	if !ok {
		return order
	}

	if sortCol.Type == domain.ColumnTypeNumber {
		numbers := make([]float64, len(values))
		for i, v := range values {
			if v == "" {
				numbers[i] = math.NaN()
				continue
			}
			numbers[i] = schema.ToNumber(v)
		}
		sort.SliceStable(order, func(a, b int) bool {
			x, y := numbers[order[a]], numbers[order[b]]
			if math.IsNaN(y) {
				return !math.IsNaN(x)
			}
			if math.IsNaN(x) {
				return false
			}
			return x > y
		})
		return order
	}

	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})
	return order
}
