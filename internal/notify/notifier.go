package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/infrastructure"
	"bdcsubs/internal/subscriber"
)

// Upstream verdicts as reported in admin email
const (
	VerdictValid       = "valid"
	VerdictInvalid     = "invalid"
	VerdictHeaderError = "header_error"
	VerdictError       = "error"
)

const (
	reportTimeLayout = "01/02/2006, 15:04:05"
	outputRule       = "============================================================"
)

// letter is the data shared by the filer-facing templates
type letter struct {
	Name            string
	ISP             string
	Period          string
	Problem         string
	Report          string
	Columns         []string
	HasAttachments  bool
	InstructionsURL string
	SupportPhone    string
	Signature       string
}

// FileInfo describes one attached output
type FileInfo struct {
	Name string
	Size int64
}

// Summary is the per-run report sent to the administrator
type Summary struct {
	ISP             string
	Period          string
	Status          string
	Complete        bool
	Rows            int
	Rejected        int
	GeocodingErrors int
	Band            string
	Voice           bool
	OutputDir       string
	Table           string
	CompletedAt     time.Time
	Attachments     []string
}

// UpstreamReport is the external pre-validator outcome sent to the administrator
type UpstreamReport struct {
	ISP         string
	Period      string
	Verdict     string
	ExitCode    int
	File        string
	Reason      string
	Stdout      string
	Stderr      string
	Attachments []string
}

// Notifier composes and sends every email a run produces
type Notifier struct {
	sender      Sender
	cfg         config.NotificationConfig
	settings    Settings
	settingsErr error
	logger      *slog.Logger

	mu            sync.Mutex
	emergencySent bool
}

// New creates a notifier. A broken settings file is not fatal: defaults
// from cfg are used and the administrator is warned on the first send.
func New(sender Sender, cfg config.NotificationConfig, smtp config.SMTPConfig, logger *slog.Logger) *Notifier {
	logger = infrastructure.WithComponent(logger, "notify")
	settings, err := LoadSettings(cfg.SettingsFile, DefaultSettings(cfg, smtp))
	if err != nil {
		logger.Error("Email settings could not be loaded, using defaults",
			slog.String("file", cfg.SettingsFile),
			slog.String("error", err.Error()))
	}
	return &Notifier{
		sender:      sender,
		cfg:         cfg,
		settings:    settings,
		settingsErr: err,
		logger:      logger,
	}
}

// Settings returns the addressing in effect
func (n *Notifier) Settings() Settings {
	return n.settings
}

func (n *Notifier) letter(rcpt Recipient, isp string) letter {
	name := rcpt.Name
	if name == "" {
		name = n.cfg.FallbackName
	}
	return letter{
		Name:            name,
		ISP:             isp,
		InstructionsURL: n.cfg.InstructionsURL,
		SupportPhone:    n.cfg.SupportPhone,
		Signature:       n.cfg.Signature,
	}
}

// compose renders a subject and body pair
func compose(subject, body string, data any) (string, string, error) {
	s, err := render(subject, data)
	if err != nil {
		return "", "", err
	}
	b, err := render(body, data)
	if err != nil {
		return "", "", err
	}
	return s, b, nil
}

// deliver sends one message to to. Filer messages carry the BCC list;
// admin messages do not.
func (n *Notifier) deliver(ctx context.Context, to string, bcc bool, subject, body string, attachments []string) error {
	if to == "" {
		return apperrors.NewNotificationError(fmt.Sprintf("no recipient for %q", subject), nil)
	}

	msg := Message{
		From:        n.settings.FromAddress,
		To:          []string{to},
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
	}
	if bcc {
		msg.BCC = n.settings.BCC
	}

	n.warnSettings(ctx, to, subject)

	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "Email failed",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return apperrors.NewNotificationError(fmt.Sprintf("failed to send %q", subject), err)
	}
	return nil
}

// warnSettings tells the administrator, once per run, that mail is going
// out with default addressing
func (n *Notifier) warnSettings(ctx context.Context, to, subject string) {
	if n.settingsErr == nil || n.settings.AdminEmail == "" {
		return
	}
	n.mu.Lock()
	if n.emergencySent {
		n.mu.Unlock()
		return
	}
	n.emergencySent = true
	n.mu.Unlock()

	data := struct {
		File      string
		Error     string
		Recipient string
		Context   string
	}{
		File:      n.cfg.SettingsFile,
		Error:     n.settingsErr.Error(),
		Recipient: to,
		Context:   "Subject: " + subject,
	}
	s, b, err := compose("subject_emergency", "emergency", data)
	if err == nil {
		err = n.sender.Send(ctx, Message{
			From:    n.settings.FromAddress,
			To:      []string{n.settings.AdminEmail},
			Subject: s,
			Body:    b,
		})
	}
	if err != nil {
		n.logger.ErrorContext(ctx, "Emergency notice failed", slog.String("error", err.Error()))
	}
}

// HeaderError tells the filer the column header is wrong
func (n *Notifier) HeaderError(ctx context.Context, rcpt Recipient, isp, problem string, attachments []string) error {
	data := n.letter(rcpt, isp)
	data.Problem = problem
	data.Columns = subscriber.ExpectedColumns
	s, b, err := compose("subject_header", "header", data)
	if err != nil {
		return apperrors.NewNotificationError("header error email", err)
	}
	return n.deliver(ctx, rcpt.Email, true, s, b, attachments)
}

// DataValidationFailed asks the filer to fix the color-coded workbook
func (n *Notifier) DataValidationFailed(ctx context.Context, rcpt Recipient, isp string, attachments []string) error {
	data := n.letter(rcpt, isp)
	data.HasAttachments = len(attachments) > 0
	s, b, err := compose("subject_data_validation", "data_validation", data)
	if err != nil {
		return apperrors.NewNotificationError("data validation email", err)
	}
	return n.deliver(ctx, rcpt.Email, true, s, b, attachments)
}

// RowErrors sends the error report. When every error is a geocoding
// failure the geocoding wording is used.
func (n *Notifier) RowErrors(ctx context.Context, rcpt Recipient, isp, report string, geocodingOnly bool, attachments []string) error {
	data := n.letter(rcpt, isp)
	data.Report = report
	data.HasAttachments = len(attachments) > 0

	subject, body := "subject_row_errors", "row_errors"
	if geocodingOnly {
		subject, body = "subject_geocoding", "geocoding"
	}
	s, b, err := compose(subject, body, data)
	if err != nil {
		return apperrors.NewNotificationError("row errors email", err)
	}
	return n.deliver(ctx, rcpt.Email, true, s, b, attachments)
}

// SystemError tells the filer processing could not complete
func (n *Notifier) SystemError(ctx context.Context, rcpt Recipient, isp string) error {
	s, b, err := compose("subject_system", "system", n.letter(rcpt, isp))
	if err != nil {
		return apperrors.NewNotificationError("system error email", err)
	}
	return n.deliver(ctx, rcpt.Email, true, s, b, nil)
}

// Success confirms a clean run
func (n *Notifier) Success(ctx context.Context, rcpt Recipient, isp string, attachments []string) error {
	data := n.letter(rcpt, isp)
	data.HasAttachments = len(attachments) > 0
	s, b, err := compose("subject_success", "success", data)
	if err != nil {
		return apperrors.NewNotificationError("success email", err)
	}
	return n.deliver(ctx, rcpt.Email, true, s, b, attachments)
}

// fileInfos stats each attachment; missing files are left out
func fileInfos(paths []string) []FileInfo {
	var out []FileInfo
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: filepath.Base(p), Size: st.Size()})
	}
	return out
}

// AdminSummary sends the processing summary with every output attached
func (n *Notifier) AdminSummary(ctx context.Context, sum Summary) error {
	statusLine := strings.ToUpper(sum.Status)
	if sum.Complete {
		statusLine = "COMPLETE - all rows were accepted"
	}
	completed := sum.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	data := struct {
		Summary
		StatusLine  string
		Files       []FileInfo
		CompletedAt string
	}{
		Summary:     sum,
		StatusLine:  statusLine,
		Files:       fileInfos(sum.Attachments),
		CompletedAt: completed.Format(reportTimeLayout),
	}
	s, b, err := compose("subject_admin_summary", "admin_summary", data)
	if err != nil {
		return apperrors.NewNotificationError("admin summary email", err)
	}
	return n.deliver(ctx, n.settings.AdminEmail, false, s, b, sum.Attachments)
}

// UpstreamResults sends the external pre-validator outcome with its artifacts
func (n *Notifier) UpstreamResults(ctx context.Context, rep UpstreamReport) error {
	var statusLine string
	switch rep.Verdict {
	case VerdictValid:
		statusLine = "VALID"
	case VerdictInvalid:
		statusLine = "INVALID"
	case VerdictHeaderError:
		statusLine = "HEADER ERROR"
	default:
		statusLine = "ERROR"
	}

	data := struct {
		UpstreamReport
		StatusLine string
		ShowOutput bool
		Rule       string
	}{
		UpstreamReport: rep,
		StatusLine:     statusLine,
		ShowOutput:     rep.Verdict == VerdictInvalid || rep.Verdict == VerdictError,
		Rule:           outputRule,
	}
	s, b, err := compose("subject_upstream", "upstream", data)
	if err != nil {
		return apperrors.NewNotificationError("upstream results email", err)
	}
	return n.deliver(ctx, n.settings.AdminEmail, false, s, b, rep.Attachments)
}
