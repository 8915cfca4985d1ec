package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/mitchellh/go-homedir"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrFetchFailed is returned when a remote source answers with a non-2xx status
	ErrFetchFailed = errors.New("fetch failed")
	// ErrSourceTooLarge is returned when a source exceeds the configured size limit
	ErrSourceTooLarge = errors.New("source exceeds size limit")
	// ErrMalformed wraps parse failures of delimited text or workbooks
	ErrMalformed = errors.New("malformed dataset")
)

// DefaultMaxBytes caps how much of a source is read into memory
const DefaultMaxBytes int64 = 32 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Separators that are considered when sniffing delimited text, in tie-break order
var candidateSeparators = []rune{',', '\t', ';'}

// Loader reads datasets from local files, http(s) URLs or raw readers
type Loader struct {
	client   *http.Client
	logger   *slog.Logger
	maxBytes int64
	sheet    string
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for remote sources
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = client
	}
}

// WithMaxBytes sets the maximum accepted source size
func WithMaxBytes(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithSheet selects the workbook sheet to read instead of the first one
func WithSheet(name string) LoaderOption {
	return func(l *Loader) {
		l.sheet = name
	}
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		client:   http.DefaultClient,
		logger:   logger.With(slog.String("component", "dataset_loader")),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolvePath expands a leading ~ and cleans a local source path
func ResolvePath(source string) (string, error) {
	expanded, err := homedir.Expand(source)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", source, err)
	}
	return filepath.Clean(expanded), nil
}

// Load reads a dataset from a local path or an http(s) URL.
// Remote failures are returned as is; there is no retry.
func (l *Loader) Load(ctx context.Context, source string) (*Dataset, error) {
	if IsRemote(source) {
		return l.fetch(ctx, source)
	}

	p, err := ResolvePath(source)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	l.logger.DebugContext(ctx, "loading local dataset", slog.String("path", p))
	return l.Read(ctx, filepath.Base(p), f)
}

func (l *Loader) fetch(ctx context.Context, source string) (*Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", source, err)
	}

	l.logger.DebugContext(ctx, "fetching remote dataset", slog.String("url", source))
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetchFailed, source, resp.StatusCode)
	}

	u, _ := url.Parse(source)
	return l.Read(ctx, path.Base(u.Path), resp.Body)
}

// Read parses a dataset from r. name is the file name the data came from.
func (l *Loader) Read(ctx context.Context, name string, r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrSourceTooLarge, name, l.maxBytes)
	}

	if IsWorkbook(data) || strings.EqualFold(filepath.Ext(name), ".xlsx") {
		l.logger.DebugContext(ctx, "parsing workbook", slog.String("name", name), slog.Int("bytes", len(data)))
		return ParseWorkbook(name, data, l.sheet)
	}
	l.logger.DebugContext(ctx, "parsing delimited text", slog.String("name", name), slog.Int("bytes", len(data)))
	return ParseDelimited(name, data)
}

// IsWorkbook sniffs the content for an xlsx container
func IsWorkbook(data []byte) bool {
	return filetype.Is(data, "xlsx")
}

// DisplayName strips the extension from a file name
func DisplayName(fileName string) string {
	base := filepath.Base(fileName)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// DetectSeparator picks the candidate separator that occurs most often in the header line
func DetectSeparator(header string) rune {
	best, bestCount := candidateSeparators[0], 0
	for _, sep := range candidateSeparators {
		if n := strings.Count(header, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// ParseDelimited parses delimited text whose first line is the header
func ParseDelimited(name string, data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, name)
	}

	headerLine := data
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		headerLine = data[:i]
	}
	sep := DetectSeparator(string(headerLine))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, name)
	}

	ds, err := New(DisplayName(name), records[0], records[1:])
	if err != nil {
		return nil, err
	}
	ds.Separator = string(sep)
	return ds, nil
}

// ParseWorkbook reads one sheet of an xlsx workbook; the first row is the header.
// An empty sheet name selects the first sheet.
func ParseWorkbook(name string, data []byte, sheet string) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s has no sheets", ErrEmptyDataset, name)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s sheet %q: %v", ErrMalformed, name, sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, name)
	}

	return New(DisplayName(name), rows[0], rows[1:])
}
