package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"zero value", 0.0, "0"},
		{"positive integer", 123.0, "123"},
		{"negative integer", -456.0, "-456"},
		{"trailing zeros", 123.456000, "123.456"},
		{"small decimal", 0.001234, "0.001234"},
		{"smallest kept", -0.000001, "-0.000001"},
		{"rounded to six decimals", 1.123456789, "1.123457"},
		{"negative zero after rounding", -0.0000001, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{"XLSX", FormatXLSX, false},
		{" xlsx ", FormatXLSX, false},
		{"json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestDescriptionRows(t *testing.T) {
	desc := domain.Description{
		PrimaryKey: "name",
		Columns: []domain.ColumnDescriptor{
			{Column: "name", Label: "name", Type: domain.ColumnTypeString},
			{Column: "mpg", Label: "mpg", Type: domain.ColumnTypeNumber, Domain: domain.NewDomain(10.4, 33.9), Color: "#1f77b4"},
			{Column: "cyl", Label: "cyl", Type: domain.ColumnTypeNumber, Domain: &domain.Domain{nil, domain.Bound(8)}},
			{Column: "am", Label: "am", Type: domain.ColumnTypeCategorical, Categories: []string{"0", "1"}},
		},
	}

	rows := descriptionRows(desc)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"column", "label", "type", "min", "max", "categories", "color"}, rows[0])
	assert.Equal(t, []string{"name", "name", "string", "", "", "", ""}, rows[1])
	assert.Equal(t, []string{"mpg", "mpg", "number", "10.4", "33.9", "", "#1f77b4"}, rows[2])
	assert.Equal(t, []string{"cyl", "cyl", "number", "", "8", "", ""}, rows[3])
	assert.Equal(t, []string{"am", "am", "categorical", "", "", "0|1", ""}, rows[4])
}
