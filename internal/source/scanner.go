package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoInput is returned when a path holds no CSV files.
var ErrNoInput = errors.New("no CSV input found")

// ScanPath resolves the dataset location. A file is returned as-is; a
// directory yields every *.csv directly inside it, sorted by name.
func ScanPath(path string) ([]DiscoveredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []DiscoveredFile{discovered(path, info)}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var files []DiscoveredFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		files = append(files, discovered(filepath.Join(path, e.Name()), fi))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, path)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func discovered(path string, info os.FileInfo) DiscoveredFile {
	return DiscoveredFile{
		Path:    path,
		Name:    filepath.Base(path),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
}
