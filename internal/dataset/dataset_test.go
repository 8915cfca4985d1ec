package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		columns     []string
		records     [][]string
		expectedErr error
		expectedLen int
		description string
	}{
		{
			name:        "regular rows",
			columns:     []string{"id", "x"},
			records:     [][]string{{"a", "1"}, {"b", "2"}},
			expectedLen: 2,
			description: "Should keep every row",
		},
		{
			name:        "no columns",
			columns:     nil,
			expectedErr: ErrEmptyDataset,
			description: "Should reject a missing header",
		},
		{
			name:        "duplicate header",
			columns:     []string{"id", "x", "x"},
			expectedErr: ErrDuplicateColumn,
			description: "Should reject repeated column names",
		},
		{
			name:        "header only",
			columns:     []string{"id"},
			records:     nil,
			expectedLen: 0,
			description: "Should allow zero rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := New("test", tt.columns, tt.records)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr, tt.description)
				return
			}
			require.NoError(t, err, tt.description)
			assert.Equal(t, tt.expectedLen, ds.Len(), tt.description)
		})
	}
}

func TestNewPadsRaggedRows(t *testing.T) {
	ds, err := New("ragged", []string{"a", "b", "c"}, [][]string{
		{"1"},
		{"1", "2", "3", "4"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "", ""}, ds.Row(0).Values())
	assert.Equal(t, []string{"1", "2", "3"}, ds.Row(1).Values())
}

func TestDatasetAccessors(t *testing.T) {
	ds, err := New("cars", []string{"id", "mpg"}, [][]string{{"a", "21"}, {"b", "22.8"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "mpg"}, ds.Columns())
	assert.True(t, ds.HasColumn("mpg"))
	assert.False(t, ds.HasColumn("cyl"))

	values, ok := ds.Values("mpg")
	require.True(t, ok)
	assert.Equal(t, []string{"21", "22.8"}, values)

	_, ok = ds.Values("cyl")
	assert.False(t, ok)

	row := ds.Row(1)
	assert.Equal(t, "b", row.Get("id"))
	assert.Equal(t, "", row.Get("cyl"))
	assert.Equal(t, map[string]string{"id": "b", "mpg": "22.8"}, row.Map())
	assert.Len(t, ds.Rows(), 2)
}

func TestDatasetIsImmutable(t *testing.T) {
	columns := []string{"id", "x"}
	ds, err := New("test", columns, [][]string{{"a", "1"}})
	require.NoError(t, err)

	columns[0] = "changed"
	ds.Columns()[1] = "changed"
	ds.Records()[0][0] = "changed"
	ds.Row(0).Values()[1] = "changed"

	assert.Equal(t, []string{"id", "x"}, ds.Columns())
	assert.Equal(t, [][]string{{"a", "1"}}, ds.Records())
}

func TestDatasetMap(t *testing.T) {
	ds, err := New("test", []string{"id", "x"}, [][]string{{"a", "1"}})
	require.NoError(t, err)
	ds.Separator = ";"

	upper, err := ds.Map(strings.ToUpper)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "X"}, upper.Columns())
	assert.Equal(t, [][]string{{"A", "1"}}, upper.Records())
	assert.Equal(t, ";", upper.Separator)
	assert.Equal(t, []string{"id", "x"}, ds.Columns(), "source dataset must not change")

	_, err = ds.Map(func(string) string { return "same" })
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}
