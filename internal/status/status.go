// Package status maintains the per-ISP, per-period processing status record.
package status

import (
	"context"
	"log/slog"

	"bdcsubs/internal/infrastructure"
)

// Processing statuses. The record is overwritten, never appended.
const (
	Processing             = "processing"
	Complete               = "complete"
	Errors                 = "errors"
	DataValidationFailed   = "data_validation_failed"
	HeaderValidationFailed = "header_validation_failed"
	SystemError            = "system_error"
)

// Messages shown to the filer alongside the final status
const (
	MessageComplete = "Subscriber file processing complete"
	MessageError    = "Subscriber file processing error. Check your email for details."
)

// Store persists status rows and filer messages
type Store interface {
	UpsertStatus(ctx context.Context, org, period string, processed bool, status string) error
	InsertMessage(ctx context.Context, org, text string) error
}

// Reporter writes the processing status of one run. Write failures are
// logged and swallowed so they never change the outcome of a run.
type Reporter struct {
	store  Store
	org    string
	period string
	logger *slog.Logger
}

// NewReporter creates a reporter for org and period
func NewReporter(store Store, org, period string, logger *slog.Logger) *Reporter {
	return &Reporter{
		store:  store,
		org:    org,
		period: period,
		logger: infrastructure.WithComponent(logger, "status"),
	}
}

// Begin marks the run as in progress
func (r *Reporter) Begin(ctx context.Context) {
	if err := r.store.UpsertStatus(ctx, r.org, r.period, false, Processing); err != nil {
		r.logger.ErrorContext(ctx, "Failed to set processing status",
			slog.String("status", Processing),
			slog.String("error", err.Error()))
	}
}

// Finish records the final status and the matching filer message
func (r *Reporter) Finish(ctx context.Context, status string) {
	if err := r.store.UpsertStatus(ctx, r.org, r.period, true, status); err != nil {
		r.logger.ErrorContext(ctx, "Failed to set final status",
			slog.String("status", status),
			slog.String("error", err.Error()))
	} else {
		r.logger.InfoContext(ctx, "Processing status updated", slog.String("status", status))
	}

	text := MessageError
	if status == Complete {
		text = MessageComplete
	}
	if err := r.store.InsertMessage(ctx, r.org, text); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert filer message", slog.String("error", err.Error()))
	}
}

// Terminal reports whether status is a final status
func Terminal(status string) bool {
	switch status {
	case Complete, Errors, DataValidationFailed, HeaderValidationFailed, SystemError:
		return true
	}
	return false
}
