package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// PeriodLayout is the filing period format used on the command line and
// as the period directory name.
const PeriodLayout = "2006-01-02"

var ispIDPattern = regexp.MustCompile(`^[0-9]+$`)

// RunPaths contains every path one ISP/period run reads or writes.
// This is the single source of truth for the upload layout.
type RunPaths struct {
	UploadsDir    string
	ISPDir        string
	PeriodDir     string
	DetailedDir   string
	AggregatedDir string
	OutputDir     string
}

// DirNames names the per-period subdirectories of the upload layout
type DirNames struct {
	Detailed   string
	Aggregated string
	Output     string
}

// ValidateISPID checks that an ISP id is a non-empty run of digits.
// The id becomes part of table and file names.
func ValidateISPID(isp string) error {
	if !ispIDPattern.MatchString(isp) {
		return fmt.Errorf("isp id %q must contain only digits", isp)
	}
	return nil
}

// ParsePeriod parses a filing period in yyyy-mm-dd form
func ParsePeriod(period string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("period %q is not a yyyy-mm-dd date: %w", period, err)
	}
	return t, nil
}

// ForRun resolves the layout for one ISP and period:
// <uploads>/<isp>/<period>/{detailed|aggregated|output}
func (p PathsConfig) ForRun(isp, period string, names DirNames) RunPaths {
	uploads := filepath.Clean(p.UploadsDir)
	ispDir := filepath.Join(uploads, isp)
	periodDir := filepath.Join(ispDir, period)

	return RunPaths{
		UploadsDir:    uploads,
		ISPDir:        ispDir,
		PeriodDir:     periodDir,
		DetailedDir:   filepath.Join(periodDir, names.Detailed),
		AggregatedDir: filepath.Join(periodDir, names.Aggregated),
		OutputDir:     filepath.Join(periodDir, names.Output),
	}
}

// EnsureOutputDir creates the output directory if needed
func (r RunPaths) EnsureOutputDir() error {
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	return nil
}

// OutputFile returns the path of a named artifact in the output directory
func (r RunPaths) OutputFile(name string) string {
	return filepath.Join(r.OutputDir, name)
}

// LogValue implements slog.LogValuer
func (r RunPaths) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("period_dir", r.PeriodDir),
		slog.String("detailed_dir", r.DetailedDir),
		slog.String("aggregated_dir", r.AggregatedDir),
		slog.String("output_dir", r.OutputDir),
	)
}
