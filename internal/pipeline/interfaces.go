package pipeline

import (
	"context"
	"time"

	"bdcsubs/internal/aggregate"
	"bdcsubs/internal/aggregator"
	"bdcsubs/internal/exporter"
	"bdcsubs/internal/files"
	"bdcsubs/internal/notify"
	"bdcsubs/internal/subscriber"
	"bdcsubs/internal/upstream"
)

// Classifier locates the input of a run
type Classifier interface {
	Classify(isp, period string) (files.Input, error)
}

// UpstreamRunner runs the external pre-validator
type UpstreamRunner interface {
	Run(ctx context.Context, file, isp, period string) (upstream.Result, error)
}

// SubscriberTable is the per-ISP table of accepted detailed rows
type SubscriberTable interface {
	Name() string
	Recreate(ctx context.Context, preserve bool) (int64, error)
	Insert(ctx context.Context, records []subscriber.Record, at time.Time) (int64, error)
	RestorePreserved(ctx context.Context) (int64, error)
	CreateCustomerIndex(ctx context.Context) error
}

// StagingTable holds the accepted rows of a pre-aggregated file
type StagingTable interface {
	Name() string
	Create(ctx context.Context) error
	Insert(ctx context.Context, records []aggregate.Record) (int64, error)
	Drop(ctx context.Context) error
}

// TractResolver finds the census tract containing a point
type TractResolver interface {
	ResolveTract(ctx context.Context, state string, lat, lon float64) (string, error)
}

// StatusReporter writes the processing status record
type StatusReporter interface {
	Begin(ctx context.Context)
	Finish(ctx context.Context, status string)
}

// Notifier sends the email of each outcome
type Notifier interface {
	HeaderError(ctx context.Context, rcpt notify.Recipient, isp, problem string, attachments []string) error
	DataValidationFailed(ctx context.Context, rcpt notify.Recipient, isp string, attachments []string) error
	RowErrors(ctx context.Context, rcpt notify.Recipient, isp, report string, geocodingOnly bool, attachments []string) error
	SystemError(ctx context.Context, rcpt notify.Recipient, isp string) error
	Success(ctx context.Context, rcpt notify.Recipient, isp string, attachments []string) error
	AdminSummary(ctx context.Context, sum notify.Summary) error
	UpstreamResults(ctx context.Context, rep notify.UpstreamReport) error
}

// Exporter writes the output artifacts
type Exporter interface {
	Clean() ([]string, error)
	WriteData(rows []aggregator.Row) (string, error)
	WriteRegulatory(rows []aggregator.Row) (string, error)
	WriteVoice(rows []aggregator.VoiceRow) (string, error)
	WriteVoiceStates(states []aggregator.StateVoice) (string, error)
	WriteErrorReport(at time.Time, lines []string) (string, error)
	WriteCorrections(in exporter.CorrectionInput) (string, error)
	PrepareUpstreamWorkbook(src string) (string, error)
}

// FileReplacer overwrites a file with another
type FileReplacer interface {
	ReplaceFile(src, dst string) error
}
