package dataset

import "fmt"

// NameColumn is the column holding the former column headers after a transpose
const NameColumn = "name"

// Transpose turns an item-by-feature dataset into a feature-by-item one.
// The first column is the row identifier: it is dropped, and every other
// column d becomes a row {name: d, <id_i>: value of row i at d}.
// Identifiers must be unique and must not collide with NameColumn.
func Transpose(d *Dataset) (*Dataset, error) {
	if len(d.columns) == 0 {
		return nil, ErrEmptyDataset
	}
	idColumn := d.columns[0]
	ids, _ := d.Values(idColumn)

	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == NameColumn {
			return nil, fmt.Errorf("%w: row %d uses reserved identifier %q", ErrDuplicateIdentifier, i, id)
		}
		if prev, exists := seen[id]; exists {
			return nil, fmt.Errorf("%w: %q at rows %d and %d", ErrDuplicateIdentifier, id, prev, i)
		}
		seen[id] = i
	}

	columns := make([]string, 0, len(ids)+1)
	columns = append(columns, NameColumn)
	columns = append(columns, ids...)

	features := d.columns[1:]
	records := make([][]string, len(features))
	for f, feature := range features {
		idx := d.index[feature]
		record := make([]string, 0, len(d.rows)+1)
		record = append(record, feature)
		for _, row := range d.rows {
			record = append(record, row[idx])
		}
		records[f] = record
	}

	out, err := New(d.Name, columns, records)
	if err != nil {
		return nil, err
	}
	out.Separator = d.Separator
	return out, nil
}
