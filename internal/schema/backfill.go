package schema

import (
	"fmt"

	"github.com/jinzhu/copier"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// FixMissing fills in what a caller supplied description left out.
// Number columns get the missing domain bounds computed from the data; a
// bound that is already set wins over the computed one. Categorical columns
// without categories get every distinct value, with no cardinality cap.
// The input is never modified.
func FixMissing(cols []domain.ColumnDescriptor, ds *dataset.Dataset) ([]domain.ColumnDescriptor, error) {
	out := make([]domain.ColumnDescriptor, len(cols))
	if len(cols) == 0 {
		return out, nil
	}
	if err := copier.CopyWithOption(&out, &cols, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy descriptors: %w", err)
	}

	for i, src := range cols {
		col := &out[i]
		values, ok := ds.Values(src.Column)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidDescription, src.Column)
		}

		switch src.Type {
		case domain.ColumnTypeNumber:
			lo, okLo := src.Domain.Min()
			hi, okHi := src.Domain.Max()
			if !okLo || !okHi {
				computed := Extent(values)
				if !okLo {
					lo, _ = computed.Min()
				}
				if !okHi {
					hi, _ = computed.Max()
				}
			}
			col.Domain = &domain.Domain{domain.Bound(lo), domain.Bound(hi)}
		case domain.ColumnTypeCategorical:
			if src.Categories == nil {
				col.Categories = Distinct(values)
			}
		}
	}
	return out, nil
}

// Apply validates a caller supplied description against ds and backfills it.
// An empty primary key defaults to the first dataset column.
func Apply(desc domain.Description, ds *dataset.Dataset) (domain.Description, error) {
	if err := Validate(desc, ds); err != nil {
		return domain.Description{}, err
	}

	cols, err := FixMissing(desc.Columns, ds)
	if err != nil {
		return domain.Description{}, err
	}

	out := domain.Description{
		Separator:  desc.Separator,
		PrimaryKey: desc.PrimaryKey,
		Columns:    cols,
	}
	if out.Separator == "" {
		out.Separator = ds.Separator
	}
	if out.PrimaryKey == "" {
		if columns := ds.Columns(); len(columns) > 0 {
			out.PrimaryKey = columns[0]
		}
	}
	return out, nil
}
