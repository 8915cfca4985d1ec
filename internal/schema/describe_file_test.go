package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(t *testing.T, desc domain.Description)
	}{
		{
			name: "yaml",
			input: `
primaryKey: model
columns:
  - label: Model
    column: model
    type: string
  - column: mpg
    type: number
    domain: [10, null]
  - column: cyl
    type: categorical
`,
			validate: func(t *testing.T, desc domain.Description) {
				assert.Equal(t, "model", desc.PrimaryKey)
				require.Len(t, desc.Columns, 3)
				assert.Equal(t, "Model", desc.Columns[0].Label)

				mpg := desc.Columns[1]
				assert.Equal(t, domain.ColumnTypeNumber, mpg.Type)
				require.NotNil(t, mpg.Domain)
				lo, ok := mpg.Domain.Min()
				assert.True(t, ok)
				assert.Equal(t, 10.0, lo)
				_, ok = mpg.Domain.Max()
				assert.False(t, ok)

				assert.Nil(t, desc.Columns[2].Categories)
			},
		},
		{
			name:  "json",
			input: `{"separator": ";", "columns": [{"column": "x", "type": "categorical", "categories": ["b", "a"]}]}`,
			validate: func(t *testing.T, desc domain.Description) {
				assert.Equal(t, ";", desc.Separator)
				require.Len(t, desc.Columns, 1)
				assert.Equal(t, []string{"b", "a"}, desc.Columns[0].Categories)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ParseDescription([]byte(tt.input))
			require.NoError(t, err)
			tt.validate(t, desc)
		})
	}
}

func TestParseDescriptionErrors(t *testing.T) {
	inputs := map[string]string{
		"unknown field":     "columns: []\nextra: 1\n",
		"short domain":      "columns:\n  - column: x\n    type: number\n    domain: [1]\n",
		"not a description": "- a\n- b\n",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDescription([]byte(input))
			assert.ErrorIs(t, err, ErrInvalidDescription)
		})
	}
}

func TestLoadDescriptionFileRoundTrip(t *testing.T) {
	desc := domain.Description{
		PrimaryKey: "id",
		Columns: []domain.ColumnDescriptor{
			{Label: "id", Column: "id", Type: domain.ColumnTypeString},
			{Label: "x", Column: "x", Type: domain.ColumnTypeNumber, Domain: domain.NewDomain(1, 2), Color: "#1f77b4"},
		},
	}

	data, err := MarshalDescription(desc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "desc.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := LoadDescriptionFile(path)
	require.NoError(t, err)
	assert.Equal(t, desc, loaded)

	_, err = LoadDescriptionFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
