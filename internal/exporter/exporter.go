package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Exporter dispatches to the CSV or xlsx writer by format
type Exporter struct {
	csv    *CSVWriter
	xlsx   *XLSXWriter
	logger *slog.Logger

	// CSVOptions apply to every CSV export
	CSVOptions WriteOptions
}

// New creates an exporter. CSV output carries a BOM by default.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{
		csv:        NewCSVWriter(logger),
		xlsx:       NewXLSXWriter(logger),
		logger:     logger,
		CSVOptions: WriteOptions{BOMPrefix: true},
	}
}

// Export writes t to out in format
func (e *Exporter) Export(out io.Writer, format Format, t Table) error {
	switch format {
	case FormatCSV:
		return e.csv.WriteCSV(out, t, e.CSVOptions)
	case FormatXLSX:
		return e.xlsx.WriteXLSX(out, t)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ExportFile writes t into dir as <name><ext> and returns the file path
func (e *Exporter) ExportFile(dir string, format Format, t Table) (string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(t.Name, format))

	if format == FormatCSV {
		return path, e.csv.WriteFile(path, t, e.CSVOptions)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := e.xlsx.WriteXLSX(file, t); err != nil {
		file.Close()
		return "", err
	}
	e.logger.Info("Wrote xlsx file", slog.String("file_path", path))
	return path, file.Close()
}

// FileName builds a safe file name for a table
func FileName(name string, format Format) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "export"
	}
	return name + format.Extension()
}
