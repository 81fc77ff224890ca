package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct{}

// NewDiscovery creates a new file discovery instance
func NewDiscovery() *Discovery {
	return &Discovery{}
}

// FindFiles lists the regular files of dir accepted by keep. The result is
// ordered newest first, ties broken by name.
func (d *Discovery) FindFiles(dir string, keep func(name string) bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		if keep != nil && !keep(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortNewestFirst(files)
	return files, nil
}

// FindByExtension finds files whose extension is one of exts (case-insensitive)
func (d *Discovery) FindByExtension(dir string, exts []string) ([]FileInfo, error) {
	return d.FindFiles(dir, func(name string) bool {
		ext := filepath.Ext(name)
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	})
}

// FindBySuffix finds files whose name ends with suffix. Upstream artifacts
// are named <input base><suffix>, so the comparison is case-insensitive.
func (d *Discovery) FindBySuffix(dir, suffix string) ([]FileInfo, error) {
	if suffix == "" {
		return nil, fmt.Errorf("empty suffix")
	}
	lower := strings.ToLower(suffix)
	return d.FindFiles(dir, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), lower)
	})
}

// GetLatestFile returns the first file of a newest-first list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}
	return files[0], true
}

func sortNewestFirst(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
}
