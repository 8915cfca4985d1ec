// Package exporter writes a view of a session, its rows in ranking order
// plus its column description, as CSV or as an xlsx workbook.
//
// Example usage:
//
//	table := exporter.Table{Name: "cars", Columns: cols, Rows: rows, Description: desc}
//	exp := exporter.New(logger)
//	err := exp.Export(w, exporter.FormatXLSX, table)
package exporter
