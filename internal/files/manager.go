package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"bdcsubs/internal/infrastructure"
)

// Manager provides the file operations a run performs on the upload tree
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = infrastructure.DiscardLogger()
	}
	return &Manager{logger: infrastructure.WithComponent(logger, "files")}
}

// CopyFile copies a file from source to destination
func (m *Manager) CopyFile(src, dst string) error {
	m.logger.Debug("Copying file",
		slog.String("src", src),
		slog.String("dst", dst))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return dstFile.Sync()
}

// ReplaceFile overwrites dst with the contents of src. The copy goes to a
// sibling temp file first so dst is never left half written.
func (m *Manager) ReplaceFile(src, dst string) error {
	tmp := dst + ".tmp"
	if err := m.CopyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}

	m.logger.Info("File replaced",
		slog.String("src", src),
		slog.String("dst", dst))
	return nil
}

// RemoveFiles deletes each path that exists and returns the removed ones.
// Missing files are not an error.
func (m *Manager) RemoveFiles(paths ...string) ([]string, error) {
	var removed []string
	var errs []error

	for _, path := range paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
			m.logger.Debug("Removed stale file", slog.String("path", path))
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}

	return removed, errors.Join(errs...)
}
