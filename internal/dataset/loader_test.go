package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectSeparator(t *testing.T) {
	tests := []struct {
		header   string
		expected rune
	}{
		{"id,x,y", ','},
		{"id\tx\ty", '\t'},
		{"id;x;y", ';'},
		{"id;x,y;z", ';'},
		{"single", ','},
		{"", ','},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectSeparator(tt.header))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "mtcars", DisplayName("data/mtcars.csv"))
	assert.Equal(t, "report.v2", DisplayName("report.v2.xlsx"))
	assert.Equal(t, "noext", DisplayName("noext"))
	assert.Equal(t, ".hidden", DisplayName(".hidden"))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("http://example.com/data.csv"))
	assert.True(t, IsRemote("https://example.com/data.csv"))
	assert.False(t, IsRemote("data/mtcars.csv"))
	assert.False(t, IsRemote("file:///tmp/data.csv"))
	assert.False(t, IsRemote("http://"))
}

func TestParseDelimited(t *testing.T) {
	tests := []struct {
		name              string
		input             string
		expectedSeparator string
		expectedColumns   []string
		expectedRecords   [][]string
		expectedErr       error
	}{
		{
			name:              "comma separated",
			input:             "id,x,y\na,1,red\nb,2,blue\n",
			expectedSeparator: ",",
			expectedColumns:   []string{"id", "x", "y"},
			expectedRecords:   [][]string{{"a", "1", "red"}, {"b", "2", "blue"}},
		},
		{
			name:              "tab separated with CRLF",
			input:             "id\tx\r\na\t1\r\n",
			expectedSeparator: "\t",
			expectedColumns:   []string{"id", "x"},
			expectedRecords:   [][]string{{"a", "1"}},
		},
		{
			name:              "semicolon with BOM",
			input:             "\xEF\xBB\xBFid;x\na;1,5\n",
			expectedSeparator: ";",
			expectedColumns:   []string{"id", "x"},
			expectedRecords:   [][]string{{"a", "1,5"}},
		},
		{
			name:              "ragged rows",
			input:             "id,x,y\na\nb,2,blue,extra\n",
			expectedSeparator: ",",
			expectedColumns:   []string{"id", "x", "y"},
			expectedRecords:   [][]string{{"a", "", ""}, {"b", "2", "blue"}},
		},
		{
			name:              "quoted cells",
			input:             "id,label\na,\"hello, world\"\n",
			expectedSeparator: ",",
			expectedColumns:   []string{"id", "label"},
			expectedRecords:   [][]string{{"a", "hello, world"}},
		},
		{
			name:        "empty input",
			input:       "  \n",
			expectedErr: ErrEmptyDataset,
		},
		{
			name:        "duplicate header",
			input:       "id,id\n1,2\n",
			expectedErr: ErrDuplicateColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ParseDelimited("test.csv", []byte(tt.input))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", ds.Name)
			assert.Equal(t, tt.expectedSeparator, ds.Separator)
			assert.Equal(t, tt.expectedColumns, ds.Columns())
			assert.Equal(t, tt.expectedRecords, ds.Records())
		})
	}
}

func writeWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	data := writeWorkbook(t, [][]interface{}{
		{"id", "x", "y"},
		{"a", 1, "red"},
		{"b", 2.5, "blue"},
	})

	ds, err := ParseWorkbook("cars.xlsx", data, "")
	require.NoError(t, err)

	assert.Equal(t, "cars", ds.Name)
	assert.Equal(t, "", ds.Separator)
	assert.Equal(t, []string{"id", "x", "y"}, ds.Columns())
	assert.Equal(t, [][]string{{"a", "1", "red"}, {"b", "2.5", "blue"}}, ds.Records())

	_, err = ParseWorkbook("cars.xlsx", data, "Missing")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseWorkbook("broken.xlsx", []byte("not a zip"), "")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoaderLoadLocalFiles(t *testing.T) {
	tmpDir := t.TempDir()

	csvPath := filepath.Join(tmpDir, "items.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,x\na,1\n"), 0644))

	xlsxPath := filepath.Join(tmpDir, "items.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, writeWorkbook(t, [][]interface{}{{"id", "x"}, {"a", 1}}), 0644))

	loader := NewLoader(nil)
	ctx := context.Background()

	for _, path := range []string{csvPath, xlsxPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			ds, err := loader.Load(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, "items", ds.Name)
			assert.Equal(t, []string{"id", "x"}, ds.Columns())
			assert.Equal(t, [][]string{{"a", "1"}}, ds.Records())
		})
	}

	_, err := loader.Load(ctx, filepath.Join(tmpDir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderLoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/mtcars.csv":
			w.Write([]byte("model,mpg\nMazda RX4,21\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	loader := NewLoader(nil, WithHTTPClient(server.Client()))

	ds, err := loader.Load(context.Background(), server.URL+"/data/mtcars.csv")
	require.NoError(t, err)
	assert.Equal(t, "mtcars", ds.Name)
	assert.Equal(t, [][]string{{"Mazda RX4", "21"}}, ds.Records())

	_, err = loader.Load(context.Background(), server.URL+"/missing.csv")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Contains(t, err.Error(), "404")
}

func TestLoaderLoadRemoteKeepsContextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	loader := NewLoader(nil, WithHTTPClient(server.Client()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := loader.Load(ctx, server.URL+"/slow.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoaderReadLimit(t *testing.T) {
	loader := NewLoader(nil, WithMaxBytes(8))

	_, err := loader.Read(context.Background(), "big.csv", strings.NewReader("id,x\na,1\nb,2\n"))
	assert.ErrorIs(t, err, ErrSourceTooLarge)

	ds, err := loader.Read(context.Background(), "ok.csv", strings.NewReader("id\na\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}
