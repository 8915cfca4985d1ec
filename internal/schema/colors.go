package schema

import "github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"

// Palette is the categorical 10-color scheme used for number columns
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// DefaultColor is given to number columns once the palette is used up
const DefaultColor = "#c1c1c1"

// DeriveColors returns a copy of cols where every number column without a
// color gets the next palette color, in column order. Columns past the end
// of the palette get DefaultColor.
func DeriveColors(cols []domain.ColumnDescriptor) []domain.ColumnDescriptor {
	out := make([]domain.ColumnDescriptor, len(cols))
	copy(out, cols)

	next := 0
	for i := range out {
		if out[i].Type != domain.ColumnTypeNumber || out[i].Color != "" {
			continue
		}
		if next < len(Palette) {
			out[i].Color = Palette[next]
		} else {
			out[i].Color = DefaultColor
		}
		next++
	}
	return out
}
