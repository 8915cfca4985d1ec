package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

func TestDeriveColors(t *testing.T) {
	cols := []domain.ColumnDescriptor{
		{Column: "id", Type: domain.ColumnTypeString},
		{Column: "a", Type: domain.ColumnTypeNumber},
		{Column: "b", Type: domain.ColumnTypeNumber, Color: "#000000"},
		{Column: "c", Type: domain.ColumnTypeCategorical},
		{Column: "d", Type: domain.ColumnTypeNumber},
	}

	out := DeriveColors(cols)

	assert.Equal(t, "", out[0].Color)
	assert.Equal(t, Palette[0], out[1].Color)
	assert.Equal(t, "#000000", out[2].Color)
	assert.Equal(t, "", out[3].Color)
	assert.Equal(t, Palette[1], out[4].Color)
	assert.Equal(t, "", cols[1].Color, "input must not change")
}

func TestDeriveColorsFallsBackAfterPalette(t *testing.T) {
	cols := make([]domain.ColumnDescriptor, len(Palette)+2)
	for i := range cols {
		cols[i].Type = domain.ColumnTypeNumber
	}

	out := DeriveColors(cols)

	assert.Equal(t, Palette[len(Palette)-1], out[len(Palette)-1].Color)
	assert.Equal(t, DefaultColor, out[len(Palette)].Color)
	assert.Equal(t, DefaultColor, out[len(Palette)+1].Color)
}
