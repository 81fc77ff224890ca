package pipeline

import (
	"context"
	"log/slog"

	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/exporter"
	"bdcsubs/internal/notify"
	"bdcsubs/internal/status"
	"bdcsubs/internal/subscriber"
)

// notify sends the filer email for the outcome and the admin summary. It
// returns the number of messages sent; failures are only logged.
func (p *Pipeline) notify(ctx context.Context, st *runState) int {
	run, out := st.run, st.out
	sent := 0
	logFailure := func(kind string, err error) {
		run.Logger.ErrorContext(ctx, "Notification failed",
			slog.String("email", kind),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
	}

	rcpt, err := p.Recipients.Resolve(ctx, run.ISP)
	if err != nil {
		logFailure("recipient", err)
	}

	if rcpt.Email != "" {
		if err := p.notifyFiler(ctx, st, rcpt); err != nil {
			logFailure(out.Status, err)
		} else {
			sent++
		}
	}

	if err := p.Notifier.AdminSummary(ctx, p.summary(st)); err != nil {
		logFailure("admin_summary", err)
	} else {
		sent++
	}
	return sent
}

func (p *Pipeline) notifyFiler(ctx context.Context, st *runState, rcpt notify.Recipient) error {
	run, out := st.run, st.out

	switch out.Status {
	case status.Complete:
		var attach []string
		if st.upstream != nil && st.upstream.Artifacts.ValidationReport != "" {
			attach = append(attach, st.upstream.Artifacts.ValidationReport)
		}
		return p.Notifier.Success(ctx, rcpt, run.ISP, attach)

	case status.Errors:
		report := exporter.FormatErrorReport(p.Now(), out.Errors.Lines())
		geocodingOnly := out.Errors.Count(apperrors.ErrTypeGeocoding) == out.Errors.Len()
		return p.Notifier.RowErrors(ctx, rcpt, run.ISP, report, geocodingOnly, nonEmpty(st.corrections))

	case status.DataValidationFailed:
		attach := nonEmpty(st.upstreamWorkbook)
		if len(attach) == 0 {
			attach = nonEmpty(st.corrections)
		}
		return p.Notifier.DataValidationFailed(ctx, rcpt, run.ISP, attach)

	case status.HeaderValidationFailed:
		return p.Notifier.HeaderError(ctx, rcpt, run.ISP, st.problem, nonEmpty(st.input.Path))

	default:
		return p.Notifier.SystemError(ctx, rcpt, run.ISP)
	}
}

// summary builds the admin report of the run
func (p *Pipeline) summary(st *runState) notify.Summary {
	out := st.out
	attach := append([]string{}, out.Artifacts...)
	attach = append(attach, st.input.Path)

	return notify.Summary{
		ISP:             st.run.ISP,
		Period:          st.run.Period,
		Status:          out.Status,
		Complete:        out.Status == status.Complete,
		Rows:            out.Rows,
		Rejected:        out.Errors.Len(),
		GeocodingErrors: out.Errors.Count(apperrors.ErrTypeGeocoding),
		Band:            subscriber.BandFor(out.Rows).String(),
		Voice:           out.Voice,
		OutputDir:       st.run.Paths.OutputDir,
		Table:           st.table,
		CompletedAt:     p.Now(),
		Attachments:     attach,
	}
}

func nonEmpty(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
