package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

func float(v float64) *float64 {
	return &v
}

func TestFixMissing(t *testing.T) {
	ds := mustDataset(t, []string{"id", "x", "y"}, [][]string{
		{"a", "5", "red"},
		{"b", "", "blue"},
		{"c", "-2", "red"},
	})

	tests := []struct {
		name        string
		column      domain.ColumnDescriptor
		expectedLo  *float64
		expectedHi  *float64
		expectedCat []string
	}{
		{
			name:       "number without domain",
			column:     domain.ColumnDescriptor{Column: "x", Type: domain.ColumnTypeNumber},
			expectedLo: float(-2),
			expectedHi: float(5),
		},
		{
			name:       "number with lower bound",
			column:     domain.ColumnDescriptor{Column: "x", Type: domain.ColumnTypeNumber, Domain: &domain.Domain{float(0), nil}},
			expectedLo: float(0),
			expectedHi: float(5),
		},
		{
			name:       "number with upper bound",
			column:     domain.ColumnDescriptor{Column: "x", Type: domain.ColumnTypeNumber, Domain: &domain.Domain{nil, float(100)}},
			expectedLo: float(-2),
			expectedHi: float(100),
		},
		{
			name:       "number with full domain",
			column:     domain.ColumnDescriptor{Column: "x", Type: domain.ColumnTypeNumber, Domain: domain.NewDomain(0, 1)},
			expectedLo: float(0),
			expectedHi: float(1),
		},
		{
			name:        "categorical without categories",
			column:      domain.ColumnDescriptor{Column: "y", Type: domain.ColumnTypeCategorical},
			expectedCat: []string{"blue", "red"},
		},
		{
			name:        "categorical with categories",
			column:      domain.ColumnDescriptor{Column: "y", Type: domain.ColumnTypeCategorical, Categories: []string{"red", "green", "blue"}},
			expectedCat: []string{"red", "green", "blue"},
		},
		{
			name:   "string column untouched",
			column: domain.ColumnDescriptor{Column: "id", Type: domain.ColumnTypeString},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FixMissing([]domain.ColumnDescriptor{tt.column}, ds)
			require.NoError(t, err)
			require.Len(t, out, 1)

			col := out[0]
			assert.Equal(t, tt.column.Column, col.Column)
			assert.Equal(t, tt.column.Type, col.Type)
			if tt.expectedCat == nil {
				assert.Empty(t, col.Categories)
			} else {
				assert.Equal(t, tt.expectedCat, col.Categories)
			}

			if tt.expectedLo == nil {
				assert.Nil(t, col.Domain)
				return
			}
			require.NotNil(t, col.Domain)
			assert.Equal(t, *tt.expectedLo, *col.Domain[0])
			assert.Equal(t, *tt.expectedHi, *col.Domain[1])
		})
	}
}

func TestFixMissingDoesNotModifyInput(t *testing.T) {
	ds := mustDataset(t, []string{"x", "y"}, [][]string{{"1", "a"}, {"3", "b"}})
	partial := &domain.Domain{float(0), nil}
	cols := []domain.ColumnDescriptor{
		{Column: "x", Type: domain.ColumnTypeNumber, Domain: partial},
		{Column: "y", Type: domain.ColumnTypeCategorical},
	}

	out, err := FixMissing(cols, ds)
	require.NoError(t, err)

	assert.Nil(t, cols[0].Domain[1])
	assert.Nil(t, cols[1].Categories)
	assert.Same(t, partial, cols[0].Domain)
	assert.Equal(t, 3.0, *out[0].Domain[1])
	assert.Equal(t, []string{"a", "b"}, out[1].Categories)
}

func TestFixMissingNoCardinalityCap(t *testing.T) {
	records := make([][]string, 50)
	for i := range records {
		records[i] = []string{string(rune('A' + i%26)) + string(rune('a'+i/26))}
	}
	ds := mustDataset(t, []string{"v"}, records)

	out, err := FixMissing([]domain.ColumnDescriptor{{Column: "v", Type: domain.ColumnTypeCategorical}}, ds)
	require.NoError(t, err)
	assert.Len(t, out[0].Categories, 50)
}

func TestFixMissingUnknownColumn(t *testing.T) {
	ds := mustDataset(t, []string{"x"}, [][]string{{"1"}})

	_, err := FixMissing([]domain.ColumnDescriptor{{Column: "nope", Type: domain.ColumnTypeNumber}}, ds)
	assert.ErrorIs(t, err, ErrInvalidDescription)
}

func TestApply(t *testing.T) {
	ds := mustDataset(t, []string{"id", "x"}, [][]string{{"a", "1"}, {"b", "4"}})
	ds.Separator = "\t"

	desc, err := Apply(domain.Description{
		Columns: []domain.ColumnDescriptor{
			{Label: "Name", Column: "id", Type: domain.ColumnTypeString},
			{Label: "X", Column: "x", Type: domain.ColumnTypeNumber},
		},
	}, ds)
	require.NoError(t, err)

	assert.Equal(t, "id", desc.PrimaryKey)
	assert.Equal(t, "\t", desc.Separator)
	assertDomain(t, desc.Columns[1].Domain, 1, 4)
}

func TestApplyRejectsInvalidDescription(t *testing.T) {
	ds := mustDataset(t, []string{"id", "x"}, [][]string{{"a", "1"}})

	_, err := Apply(domain.Description{
		PrimaryKey: "key",
		Columns: []domain.ColumnDescriptor{
			{Column: "x", Type: "bogus"},
			{Column: "z", Type: domain.ColumnTypeNumber},
			{Column: "id", Type: domain.ColumnTypeString, Color: "blue"},
		},
	}, ds)

	var descErr *DescriptionError
	require.ErrorAs(t, err, &descErr)
	assert.ErrorIs(t, err, ErrInvalidDescription)

	fields := make([]string, 0, len(descErr.Fields))
	for _, f := range descErr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{
		"columns[0].type",
		"columns[2].color",
		"primaryKey",
		"columns[1].column",
	}, fields)
}
