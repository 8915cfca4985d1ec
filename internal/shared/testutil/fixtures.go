package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CarsCSV is a small mtcars excerpt with an id column, two numbers and a
// low cardinality column.
const CarsCSV = `id,mpg,cyl,gear
Mazda RX4,21,6,4
Datsun 710,22.8,4,4
Hornet Sportabout,18.7,8,3
Valiant,18.1,6,3
Merc 240D,24.4,4,4
`

// CarsDescription is a partial description for CarsCSV; domains and
// categories are left for backfilling.
const CarsDescription = `primaryKey: id
columns:
  - label: Car
    column: id
    type: string
  - label: Miles per gallon
    column: mpg
    type: number
    color: "#d62728"
  - label: Gears
    column: gear
    type: categorical
`

// WriteFile writes content to name inside a fresh temp dir and returns the path
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// WriteFileIn writes content to name inside dir and returns the path
func WriteFileIn(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}
