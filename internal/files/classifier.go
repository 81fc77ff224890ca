package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
)

// Kind tags the category of an input file
type Kind string

const (
	// KindDetailed is a per-subscriber file
	KindDetailed Kind = "detailed"
	// KindAggregated is a file already grouped by tract, technology and speed
	KindAggregated Kind = "aggregated"
)

// Input is the file chosen for a run
type Input struct {
	Path string
	Kind Kind
	File FileInfo
}

// Classifier locates the input of an ISP/period run and decides its category
// from the subdirectory it lives in.
type Classifier struct {
	paths     config.PathsConfig
	contract  *manifest.Contract
	discovery *Discovery
	logger    *slog.Logger
}

// NewClassifier creates a classifier over the uploads tree
func NewClassifier(paths config.PathsConfig, contract *manifest.Contract, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = infrastructure.DiscardLogger()
	}
	return &Classifier{
		paths:     paths,
		contract:  contract,
		discovery: NewDiscovery(),
		logger:    infrastructure.WithComponent(logger, "classifier"),
	}
}

// Classify resolves the input for isp and period. The detailed subdirectory
// wins over the aggregated one. Within a directory the newest accepted file
// is used and any others are logged as ignored.
func (c *Classifier) Classify(isp, period string) (Input, error) {
	run := c.paths.ForRun(isp, period, c.contract.DirNames())

	if info, err := os.Stat(run.PeriodDir); err != nil || !info.IsDir() {
		return Input{}, apperrors.NewNotFoundError(fmt.Sprintf("upload directory %s", run.PeriodDir))
	}

	candidates := []struct {
		dir  string
		kind Kind
	}{
		{run.DetailedDir, KindDetailed},
		{run.AggregatedDir, KindAggregated},
	}

	for _, cand := range candidates {
		found, err := c.discovery.FindByExtension(cand.dir, c.contract.Inputs.Extensions)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.logger.Debug("Input directory absent", slog.String("dir", cand.dir))
				continue
			}
			return Input{}, apperrors.NewAppError(apperrors.ErrTypeInternal, "failed to scan input directory", err)
		}

		latest, ok := GetLatestFile(found)
		if !ok {
			continue
		}

		for _, other := range found[1:] {
			c.logger.Warn("Ignoring older input file",
				slog.String("file", other.Path),
				slog.String("selected", latest.Path))
		}

		c.logger.Info("Input classified",
			slog.String("kind", string(cand.kind)),
			slog.String("file", latest.Path),
			slog.Int64("size", latest.Size))

		return Input{Path: latest.Path, Kind: cand.kind, File: latest}, nil
	}

	return Input{}, apperrors.NewNotFoundError(fmt.Sprintf("subscriber file for ISP %s period %s", isp, period))
}
