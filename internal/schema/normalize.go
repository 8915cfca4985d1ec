package schema

import (
	"strings"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
)

// NormalizeValue trims surrounding whitespace and strips one pair of
// enclosing double quotes.
func NormalizeValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v
}

// NormalizeRow normalizes every key and value of a raw record
func NormalizeRow(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[NormalizeValue(k)] = NormalizeValue(v)
	}
	return out
}

// Normalize applies NormalizeValue to every header and cell of ds.
// Two headers that only differ by padding or quotes collide and fail with
// dataset.ErrDuplicateColumn.
func Normalize(ds *dataset.Dataset) (*dataset.Dataset, error) {
	return ds.Map(NormalizeValue)
}
