package pipeline

import (
	"context"
	"log/slog"

	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/notify"
	"bdcsubs/internal/status"
	"bdcsubs/internal/upstream"
)

// runUpstream returns the upstream stage. A verdict other than valid ends
// the run with the matching status.
func (p *Pipeline) runUpstream(st *runState) func(context.Context) (map[string]interface{}, error) {
	return func(ctx context.Context) (map[string]interface{}, error) {
		run, out := st.run, st.out

		res, err := p.Upstream.Run(ctx, st.input.Path, run.ISP, run.Period)
		if err != nil {
			return nil, err
		}
		st.upstream = &res

		rep := notify.UpstreamReport{
			ISP:         run.ISP,
			Period:      run.Period,
			Verdict:     string(res.Verdict),
			ExitCode:    res.ExitCode,
			File:        st.input.Path,
			Reason:      res.Reason,
			Stdout:      res.Stdout,
			Stderr:      res.Stderr,
			Attachments: res.Artifacts.All(),
		}
		if err := p.Notifier.UpstreamResults(ctx, rep); err != nil {
			run.Logger.WarnContext(ctx, "Upstream results email failed", slog.String("error", err.Error()))
		}

		switch res.Verdict {
		case upstream.Valid:
			if csv := res.Artifacts.CorrectedCSV; csv != "" && p.Files != nil {
				if err := p.Files.ReplaceFile(csv, st.input.Path); err != nil {
					run.Logger.WarnContext(ctx, "Keeping original input, corrected file could not be applied",
						slog.String("corrected", csv),
						slog.String("error", err.Error()))
				} else {
					p.recordInput(ctx, st)
				}
			}

		case upstream.Invalid:
			out.Status = status.DataValidationFailed
			if wb := res.Artifacts.Workbook(); wb != "" {
				path, err := p.Exporter.PrepareUpstreamWorkbook(wb)
				if err != nil {
					run.Logger.ErrorContext(ctx, "Upstream workbook could not be prepared", slog.String("error", err.Error()))
				} else {
					st.upstreamWorkbook = path
					p.addArtifact(ctx, st, path)
				}
			}

		case upstream.HeaderError:
			out.Status = status.HeaderValidationFailed

		default:
			out.fail(status.SystemError, apperrors.NewUpstreamError(res.Reason, nil))
		}

		return map[string]interface{}{
			"verdict":   string(res.Verdict),
			"exit_code": res.ExitCode,
			"artifacts": len(res.Artifacts.All()),
		}, nil
	}
}
