package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrOutsideBase is returned when a name resolves outside the base directory
var ErrOutsideBase = errors.New("path escapes data directory")

// DatasetExtensions lists the file extensions the loader understands
var DatasetExtensions = []string{".csv", ".tsv", ".txt", ".xlsx"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Format  string    `json:"format"`
}

// Discovery provides file discovery operations below a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// BasePath returns the directory discovery is rooted at
func (d *Discovery) BasePath() string {
	return d.basePath
}

// IsDataset reports whether name has a supported dataset extension
func IsDataset(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range DatasetExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// Resolve joins a relative name onto the base directory. Absolute names and
// names that climb out of the base directory are rejected.
func (d *Discovery) Resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrOutsideBase, name)
	}
	base, err := filepath.Abs(d.basePath)
	if err != nil {
		return "", err
	}
	full := filepath.Join(base, name)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideBase, name)
	}
	return full, nil
}

// FindDatasets lists dataset files in dir (relative to the base directory
// unless absolute), sorted by name. Subdirectories are not searched.
func (d *Discovery) FindDatasets(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !IsDataset(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, newFileInfo(filepath.Join(fullPath, entry.Name()), info))
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// FindFilesByPattern finds dataset files matching a glob pattern
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	matches, err := filepath.Glob(filepath.Join(fullPath, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() || !IsDataset(match) {
			continue
		}
		files = append(files, newFileInfo(match, info))
	}
	return files, nil
}

func newFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Format:  strings.TrimPrefix(strings.ToLower(filepath.Ext(info.Name())), "."),
	}
}
