package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

const (
	dataSheet        = "data"
	descriptionSheet = "description"
)

// XLSXWriter writes a table as a workbook with a data sheet and a
// description sheet
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new xlsx writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger}
}

// WriteXLSX writes t to out. Cells of number columns that parse as
// numbers are stored as numbers, everything else as text.
func (w *XLSXWriter) WriteXLSX(out io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("failed to name data sheet: %w", err)
	}
	if _, err := f.NewSheet(descriptionSheet); err != nil {
		return fmt.Errorf("failed to create description sheet: %w", err)
	}

	numeric := make([]bool, len(t.Columns))
	for i, col := range t.Columns {
		if desc, ok := t.Description.Lookup(col); ok && desc.Type == domain.ColumnTypeNumber {
			numeric[i] = true
		}
	}

	if err := writeRows(f, dataSheet, append([][]string{t.Columns}, t.Rows...), func(row, col int, v string) interface{} {
		if row > 0 && col < len(numeric) && numeric[col] {
			if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return n
			}
		}
		return v
	}); err != nil {
		return err
	}

	if err := writeRows(f, descriptionSheet, descriptionRows(t.Description), nil); err != nil {
		return err
	}

	w.logger.Debug("Writing xlsx workbook",
		slog.String("table", t.Name),
		slog.Int("record_count", len(t.Rows)),
		slog.Int("column_count", len(t.Columns)))

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]string, convert func(row, col int, v string) interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open %s sheet: %w", sheet, err)
	}

	for r, record := range rows {
		cells := make([]interface{}, len(record))
		for c, v := range record {
			if convert != nil {
				cells[c] = convert(r, c, v)
			} else {
				cells[c] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r, err)
		}
	}
	return sw.Flush()
}
