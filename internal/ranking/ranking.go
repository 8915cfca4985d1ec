package ranking

import (
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// RankColumnKey identifies the synthetic rank column
const RankColumnKey = "rank"

// Column is one visible column of a ranking
type Column struct {
	Key  string                  `json:"key"`
	Desc domain.ColumnDescriptor `json:"desc"`
}

// Ranking is the ordered set of visible columns of a view and the column it is sorted by
type Ranking struct {
	Columns []Column `json:"columns"`
	SortBy  string   `json:"sortBy,omitempty"`
}

// LinkResult reports what Link changed
type LinkResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	SortBy  string   `json:"sortBy,omitempty"`
}

// Changed reports whether any column was added or removed
func (r LinkResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

func rankColumn() Column {
	return Column{
		Key: RankColumnKey,
		Desc: domain.ColumnDescriptor{
			Label: "Rank",
			Type:  domain.ColumnTypeRank,
		},
	}
}

// NewRanking creates the initial ranking of a view: the rank column followed
// by the first described column.
func NewRanking(desc domain.Description) *Ranking {
	r := &Ranking{Columns: []Column{rankColumn()}}
	if len(desc.Columns) > 0 {
		first := desc.Columns[0]
		r.Columns = append(r.Columns, Column{Key: first.Key(), Desc: first})
	}
	return r
}

// Clone returns an independent copy
func (r *Ranking) Clone() *Ranking {
	return &Ranking{
		Columns: append([]Column(nil), r.Columns...),
		SortBy:  r.SortBy,
	}
}

// Keys returns the column keys in display order
func (r *Ranking) Keys() []string {
	keys := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Has reports whether a column with key is visible
func (r *Ranking) Has(key string) bool {
	for _, c := range r.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

// Link makes the ranking show exactly the target columns picked by a
// selection in the other view. Row i of the other view stands for
// targetCols[i+1] since targetCols[0] is the name column. Rank, selection and
// name columns always stay, already visible columns keep their place and the
// first newly added column becomes the sort column. Indices that do not map
// to a column are ignored, as are repeated ones.
func (r *Ranking) Link(targetCols []domain.ColumnDescriptor, selected []int) LinkResult {
	var nameKey string
	if len(targetCols) > 0 {
		nameKey = targetCols[0].Key()
	}

	toShow := make([]domain.ColumnDescriptor, 0, len(selected))
	picked := make(map[string]bool, len(selected))
	for _, i := range selected {
		if i < 0 || i+1 >= len(targetCols) {
			continue
		}
		col := targetCols[i+1]
		if picked[col.Key()] {
			continue
		}
		picked[col.Key()] = true
		toShow = append(toShow, col)
	}

	result := LinkResult{Added: []string{}, Removed: []string{}}
	kept := make([]Column, 0, len(r.Columns)+len(toShow))
	present := make(map[string]bool, len(r.Columns))
	for _, c := range r.Columns {
		special := c.Desc.Type == domain.ColumnTypeRank ||
			c.Desc.Type == domain.ColumnTypeSelection ||
			c.Key == nameKey
		if !special && !picked[c.Key] {
			result.Removed = append(result.Removed, c.Key)
			continue
		}
		kept = append(kept, c)
		present[c.Key] = true
	}

	for _, col := range toShow {
		if present[col.Key()] {
			continue
		}
		kept = append(kept, Column{Key: col.Key(), Desc: col})
		result.Added = append(result.Added, col.Key())
	}

	r.Columns = kept
	if len(result.Added) > 0 {
		r.SortBy = result.Added[0]
	} else if r.SortBy != "" && !r.Has(r.SortBy) {
		r.SortBy = ""
	}
	result.SortBy = r.SortBy
	return result
}
