package pipeline

import (
	"context"
	"errors"

	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/exporter"
	"bdcsubs/internal/status"
)

// problemOf returns the message of err without its type tag
func problemOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// headerFailure ends a run whose header is unusable. Only the error report
// is written.
func (p *Pipeline) headerFailure(ctx context.Context, st *runState, err error) {
	st.out.fail(status.HeaderValidationFailed, err)
	st.problem = problemOf(err)

	_ = p.stage(ctx, st, StageReport, "Write error report", func(ctx context.Context) (map[string]interface{}, error) {
		path, err := p.Exporter.WriteErrorReport(p.Now(), []string{st.problem})
		if err != nil {
			return nil, err
		}
		st.errorReport = path
		p.addArtifact(ctx, st, path)
		return nil, nil
	})
}

// writeReports writes the error report and, for detailed files, the
// correction workbook. Neither is written when there is nothing to show.
func (p *Pipeline) writeReports(ctx context.Context, st *runState, det *detailedFile) {
	out := st.out
	hasDetail := det != nil && (len(det.corrections) > 0 || len(det.warnings) > 0)
	if out.Errors.Len() == 0 && !hasDetail {
		p.skip(st, StageReport, "Write error report", "no errors")
		return
	}

	_ = p.stage(ctx, st, StageReport, "Write error report", func(ctx context.Context) (map[string]interface{}, error) {
		var errs []error
		if out.Errors.Len() > 0 {
			path, err := p.Exporter.WriteErrorReport(p.Now(), out.Errors.Lines())
			if err != nil {
				errs = append(errs, err)
			} else {
				st.errorReport = path
				p.addArtifact(ctx, st, path)
			}
		}

		if det != nil {
			path, err := p.Exporter.WriteCorrections(exporter.CorrectionInput{
				Header:      det.header,
				Columns:     det.cols,
				Rows:        det.rows,
				Corrections: det.corrections,
				Errors:      out.Errors.Ordered(),
				Warnings:    det.warnings,
			})
			if err != nil {
				errs = append(errs, err)
			} else {
				st.corrections = path
				p.addArtifact(ctx, st, path)
			}
		}

		return map[string]interface{}{"errors": out.Errors.Counts()}, errors.Join(errs...)
	})
}
