package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.TSV", "c.xlsx", "notes.md", ".hidden.csv", "d.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))
	return dir
}

func TestFindDatasets(t *testing.T) {
	dir := setupDataDir(t)
	d := NewDiscovery(dir)

	files, err := d.FindDatasets(".")
	require.NoError(t, err)

	names := make([]string, len(files))
	formats := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		formats[i] = f.Format
		assert.Equal(t, int64(1), f.Size)
		assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
	}
	assert.Equal(t, []string{"a.TSV", "b.csv", "c.xlsx", "d.txt"}, names)
	assert.Equal(t, []string{"tsv", "csv", "xlsx", "txt"}, formats)

	abs, err := NewDiscovery("/elsewhere").FindDatasets(dir)
	require.NoError(t, err)
	assert.Len(t, abs, 4)

	_, err = d.FindDatasets("missing")
	assert.Error(t, err)
}

func TestFindFilesByPattern(t *testing.T) {
	d := NewDiscovery(setupDataDir(t))

	tests := []struct {
		pattern string
		want    int
	}{
		{"*.csv", 1},
		{"*", 4},
		{"*.md", 0},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			files, err := d.FindFilesByPattern(".", tt.pattern)
			require.NoError(t, err)
			assert.Len(t, files, tt.want)
		})
	}

	_, err := d.FindFilesByPattern(".", "[")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	d := NewDiscovery(dir)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain name", input: "cars.csv", want: filepath.Join(dir, "cars.csv")},
		{name: "nested", input: "sub/cars.csv", want: filepath.Join(dir, "sub", "cars.csv")},
		{name: "climbs back in", input: "sub/../cars.csv", want: filepath.Join(dir, "cars.csv")},
		{name: "escapes", input: "../cars.csv", wantErr: true},
		{name: "absolute", input: "/etc/passwd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "dotdot prefix in name", input: "..cars.csv", want: filepath.Join(dir, "..cars.csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Resolve(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutsideBase)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDataset(t *testing.T) {
	assert.True(t, IsDataset("x.CSV"))
	assert.True(t, IsDataset("dir/x.xlsx"))
	assert.False(t, IsDataset("x.xls"))
	assert.False(t, IsDataset("csv"))
}
