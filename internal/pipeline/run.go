package pipeline

import (
	"context"
	"log/slog"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/files"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/manifest"
	"bdcsubs/internal/status"
)

// Run is the explicit context of one invocation. It is created per run and
// never shared.
type Run struct {
	ID       string
	ISP      string
	Period   string
	Paths    config.RunPaths
	Manifest *manifest.RunManifest
	Logger   *slog.Logger
}

// NewRun creates the context of a run and tags ctx with its run id
func NewRun(ctx context.Context, isp, period string, paths config.RunPaths, logger *slog.Logger) (context.Context, *Run) {
	ctx = infrastructure.EnsureRunID(ctx)
	id := infrastructure.GetRunID(ctx)
	return ctx, &Run{
		ID:       id,
		ISP:      isp,
		Period:   period,
		Paths:    paths,
		Manifest: manifest.NewRunManifest(id, isp, period),
		Logger: logger.With(
			slog.String("isp", isp),
			slog.String("period", period)),
	}
}

// Outcome summarizes a finished run
type Outcome struct {
	Status    string
	Kind      files.Kind
	Input     string
	Rows      int
	Accepted  int
	Errors    *apperrors.RowErrors
	Warnings  int
	Voice     bool
	Artifacts []string
	Err       error
}

func (o *Outcome) fail(st string, err error) {
	o.Status = st
	o.Err = err
}

// ExitCode maps the outcome to the process exit code
func (o Outcome) ExitCode() int {
	switch o.Status {
	case status.Complete:
		return apperrors.ExitOK
	case status.Errors:
		return apperrors.ExitRowErrors
	case status.DataValidationFailed:
		return apperrors.ExitDataValidation
	case status.HeaderValidationFailed:
		return apperrors.ExitSchema
	}
	if code := apperrors.ExitCode(o.Err); code != apperrors.ExitOK {
		return code
	}
	return apperrors.ExitSystem
}
