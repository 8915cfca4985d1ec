package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

func featureColumns() []domain.ColumnDescriptor {
	return []domain.ColumnDescriptor{
		{Label: "name", Column: "name", Type: domain.ColumnTypeCategorical},
		{Label: "a", Column: "a", Type: domain.ColumnTypeNumber},
		{Label: "b", Column: "b", Type: domain.ColumnTypeNumber},
		{Label: "c", Column: "c", Type: domain.ColumnTypeString},
	}
}

func TestNewRanking(t *testing.T) {
	r := NewRanking(domain.Description{Columns: featureColumns()})

	assert.Equal(t, []string{RankColumnKey, "categorical:name"}, r.Keys())
	assert.Empty(t, r.SortBy)

	empty := NewRanking(domain.Description{})
	assert.Equal(t, []string{RankColumnKey}, empty.Keys())
}

func TestLink(t *testing.T) {
	tests := []struct {
		name            string
		initial         [][]int
		selected        []int
		expectedKeys    []string
		expectedAdded   []string
		expectedRemoved []string
		expectedSortBy  string
	}{
		{
			name:           "select two rows",
			selected:       []int{1, 0},
			expectedKeys:   []string{RankColumnKey, "categorical:name", "number:b", "number:a"},
			expectedAdded:  []string{"number:b", "number:a"},
			expectedSortBy: "number:b",
		},
		{
			name:            "clear selection",
			initial:         [][]int{{0, 1}},
			selected:        nil,
			expectedKeys:    []string{RankColumnKey, "categorical:name"},
			expectedRemoved: []string{"number:a", "number:b"},
			expectedSortBy:  "",
		},
		{
			name:            "keep existing column in place",
			initial:         [][]int{{0, 1}},
			selected:        []int{2, 1},
			expectedKeys:    []string{RankColumnKey, "categorical:name", "number:b", "string:c"},
			expectedAdded:   []string{"string:c"},
			expectedRemoved: []string{"number:a"},
			expectedSortBy:  "string:c",
		},
		{
			name:           "unchanged selection keeps sort",
			initial:        [][]int{{0}},
			selected:       []int{0},
			expectedKeys:   []string{RankColumnKey, "categorical:name", "number:a"},
			expectedSortBy: "number:a",
		},
		{
			name:           "out of range and repeated indices ignored",
			selected:       []int{-1, 3, 10, 0, 0},
			expectedKeys:   []string{RankColumnKey, "categorical:name", "number:a"},
			expectedAdded:  []string{"number:a"},
			expectedSortBy: "number:a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := featureColumns()
			r := NewRanking(domain.Description{Columns: cols})
			for _, sel := range tt.initial {
				r.Link(cols, sel)
			}

			result := r.Link(cols, tt.selected)

			assert.Equal(t, tt.expectedKeys, r.Keys())
			assert.Equal(t, tt.expectedSortBy, r.SortBy)
			assert.Equal(t, tt.expectedSortBy, result.SortBy)
			if tt.expectedAdded == nil {
				assert.Empty(t, result.Added)
			} else {
				assert.Equal(t, tt.expectedAdded, result.Added)
			}
			if tt.expectedRemoved == nil {
				assert.Empty(t, result.Removed)
			} else {
				assert.Equal(t, tt.expectedRemoved, result.Removed)
			}
			assert.Equal(t, len(tt.expectedAdded)+len(tt.expectedRemoved) > 0, result.Changed())
		})
	}
}

func TestLinkKeepsSelectionColumn(t *testing.T) {
	cols := featureColumns()
	r := NewRanking(domain.Description{Columns: cols})
	r.Columns = append(r.Columns, Column{Key: "selection", Desc: domain.ColumnDescriptor{Type: domain.ColumnTypeSelection}})

	r.Link(cols, []int{0})

	assert.Equal(t, []string{RankColumnKey, "categorical:name", "selection", "number:a"}, r.Keys())
}

func TestClone(t *testing.T) {
	cols := featureColumns()
	r := NewRanking(domain.Description{Columns: cols})
	clone := r.Clone()

	r.Link(cols, []int{0})

	assert.Equal(t, []string{RankColumnKey, "categorical:name"}, clone.Keys())
	assert.Empty(t, clone.SortBy)
}

func TestOrder(t *testing.T) {
	ds, err := dataset.New("items", []string{"id", "x", "y"}, [][]string{
		{"a", "1", "red"},
		{"b", "", "blue"},
		{"c", "3", "green"},
		{"d", "n/a", "blue"},
		{"e", "3", "amber"},
	})
	require.NoError(t, err)

	cols := []domain.ColumnDescriptor{
		{Column: "id", Type: domain.ColumnTypeString},
		{Column: "x", Type: domain.ColumnTypeNumber},
		{Column: "y", Type: domain.ColumnTypeCategorical},
	}
	r := NewRanking(domain.Description{Columns: cols})

	assert.Equal(t, []int{0, 1, 2, 3, 4}, r.Order(ds), "unsorted keeps dataset order")

	r.Link(cols, []int{0})
	require.Equal(t, "number:x", r.SortBy)
	assert.Equal(t, []int{2, 4, 0, 1, 3}, r.Order(ds))

	r.Link(cols, []int{1})
	require.Equal(t, "categorical:y", r.SortBy)
	assert.Equal(t, []int{4, 1, 3, 2, 0}, r.Order(ds))
}
