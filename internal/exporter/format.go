package exporter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned for export formats other than csv and xlsx
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case; "" means csv
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// Table is one view prepared for export
type Table struct {
	Name        string
	Columns     []string
	Rows        [][]string
	Description domain.Description
}

// formatFloat renders f with at most six decimals and no trailing zeros
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// formatBound renders one domain bound; unknown bounds are empty
func formatBound(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return formatFloat(v)
}

// descriptionRows flattens a description into header plus one row per column
func descriptionRows(desc domain.Description) [][]string {
	rows := [][]string{{"column", "label", "type", "min", "max", "categories", "color"}}
	for _, col := range desc.Columns {
		lo, okLo := col.Domain.Min()
		hi, okHi := col.Domain.Max()
		rows = append(rows, []string{
			col.Column,
			col.Label,
			string(col.Type),
			formatBound(lo, okLo),
			formatBound(hi, okHi),
			strings.Join(col.Categories, "|"),
			col.Color,
		})
	}
	return rows
}
