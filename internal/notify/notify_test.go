package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"bdcsubs/internal/config"
	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/store"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockSender) sent() []Message {
	var out []Message
	for _, c := range m.Calls {
		out = append(out, c.Arguments.Get(1).(Message))
	}
	return out
}

type fakeUsers struct {
	user store.User
	err  error
}

func (f fakeUsers) UserByOrg(context.Context, string) (store.User, error) {
	return f.user, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() (config.NotificationConfig, config.SMTPConfig) {
	cfg := config.Default()
	n := cfg.Notification
	n.FromAddress = "filings@example.com"
	n.AdminEmail = "admin@example.com"
	n.BCC = []string{"audit@example.com"}
	n.InstructionsURL = "https://example.com/subscriber-template"
	n.SupportPhone = "555-0100"
	return n, cfg.SMTP
}

func newNotifier(t *testing.T, n config.NotificationConfig, smtp config.SMTPConfig) (*Notifier, *mockSender) {
	t.Helper()
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	return New(sender, n, smtp, discard()), sender
}

func TestLoadSettings(t *testing.T) {
	n, smtp := testConfig()
	defaults := DefaultSettings(n, smtp)
	assert.Equal(t, []string{"audit@example.com", "admin@example.com"}, defaults.BCC)

	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	t.Run("complete file", func(t *testing.T) {
		p := write("ok.json", `{"from_address":"from@example.com","admin_email":"other@example.com",
			"bcc_addresses":"a@example.com, b@example.com,","smtp_user":"relay@example.com"}`)
		s, err := LoadSettings(p, defaults)
		require.NoError(t, err)
		assert.Equal(t, "from@example.com", s.FromAddress)
		assert.Equal(t, "other@example.com", s.AdminEmail)
		assert.Equal(t, "relay@example.com", s.SMTPUser)
		assert.Equal(t, []string{"a@example.com", "b@example.com", "admin@example.com"}, s.BCC)
	})

	t.Run("missing field", func(t *testing.T) {
		p := write("partial.json", `{"from_address":"from@example.com","smtp_user":"x"}`)
		s, err := LoadSettings(p, defaults)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin_email, bcc_addresses")
		assert.Equal(t, defaults, s)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := LoadSettings(write("bad.json", `{`), defaults)
		assert.ErrorContains(t, err, "invalid JSON")
	})

	t.Run("absent file", func(t *testing.T) {
		s, err := LoadSettings(filepath.Join(dir, "nope.json"), defaults)
		assert.Error(t, err)
		assert.Equal(t, defaults, s)
	})

	t.Run("no file configured", func(t *testing.T) {
		s, err := LoadSettings("", defaults)
		assert.NoError(t, err)
		assert.Equal(t, defaults, s)
	})
}

func TestNotifier_HeaderError(t *testing.T) {
	n, smtp := testConfig()
	notifier, sender := newNotifier(t, n, smtp)

	err := notifier.HeaderError(context.Background(), Recipient{Email: "filer@example.com", Name: "Pat"},
		"1234", "expected 12 columns, found 11", []string{"/tmp/orig.csv"})
	require.NoError(t, err)

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, "FCC BDC Subscriber File - Column Header Error", msg.Subject)
	assert.Equal(t, []string{"filer@example.com"}, msg.To)
	assert.Equal(t, "filings@example.com", msg.From)
	assert.Equal(t, []string{"audit@example.com", "admin@example.com"}, msg.BCC)
	assert.Equal(t, []string{"/tmp/orig.csv"}, msg.Attachments)
	assert.Contains(t, msg.Body, "Dear Pat,")
	assert.Contains(t, msg.Body, "Problem found: expected 12 columns, found 11")
	assert.Contains(t, msg.Body, "  • voip_lines_quantity\n")
	assert.Contains(t, msg.Body, "please contact RSI at 555-0100.")
}

func TestNotifier_FilerMessages(t *testing.T) {
	n, smtp := testConfig()
	ctx := context.Background()
	rcpt := Recipient{Email: "filer@example.com"}

	tests := []struct {
		name        string
		send        func(*Notifier) error
		wantSubject string
		wantBody    []string
	}{
		{
			name:        "data validation",
			send:        func(nt *Notifier) error { return nt.DataValidationFailed(ctx, rcpt, "77", []string{"wb.xlsx"}) },
			wantSubject: "Your FCC BDC Subscriber File Failed to Complete Processing due to Errors; Action Requested (77)",
			wantBody:    []string{"Dear Customer,", "Green cells have been automatically corrected", "Red and Pink cells need manual correction"},
		},
		{
			name:        "geocoding only",
			send:        func(nt *Notifier) error { return nt.RowErrors(ctx, rcpt, "77", "Date: x\nerror geocoding row 2 addr: A\n", true, nil) },
			wantSubject: "Subscriber File Processing - Geocoding Issues",
			wantBody:    []string{"error geocoding row 2 addr: A", "may need manual coordinate entry", "Best Regards,\n\nThe Regulatory Solutions Team"},
		},
		{
			name:        "row errors",
			send:        func(nt *Notifier) error { return nt.RowErrors(ctx, rcpt, "77", "row 3: bad\n", false, []string{"c.xlsx"}) },
			wantSubject: "Subscriber File Processing - Row Errors (77)",
			wantBody:    []string{"row 3: bad", "left out of your filing", "The attached workbook highlights"},
		},
		{
			name:        "system error",
			send:        func(nt *Notifier) error { return nt.SystemError(ctx, rcpt, "77") },
			wantSubject: "Subscriber File Processing Error",
			wantBody:    []string{"- File encoding problems", "https://example.com/subscriber-template"},
		},
		{
			name:        "success",
			send:        func(nt *Notifier) error { return nt.Success(ctx, rcpt, "77", []string{"77_VR.xlsx"}) },
			wantSubject: "FCC BDC Subscriber File Successfully Processed (77)",
			wantBody:    []string{"successfully processed and validated", "Validation Report (77_VR.xlsx)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier, sender := newNotifier(t, n, smtp)
			require.NoError(t, tt.send(notifier))

			msgs := sender.sent()
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.wantSubject, msgs[0].Subject)
			for _, want := range tt.wantBody {
				assert.Contains(t, msgs[0].Body, want)
			}
		})
	}
}

func TestNotifier_AdminSummary(t *testing.T) {
	n, smtp := testConfig()
	notifier, sender := newNotifier(t, n, smtp)

	dir := t.TempDir()
	out := filepath.Join(dir, "77_data.csv")
	require.NoError(t, os.WriteFile(out, []byte("12345"), 0o600))

	err := notifier.AdminSummary(context.Background(), Summary{
		ISP:             "77",
		Period:          "2024-06-30",
		Status:          "complete",
		Complete:        true,
		Rows:            10,
		GeocodingErrors: 0,
		Band:            "0-200 rows: no errors allowed",
		Voice:           true,
		OutputDir:       dir,
		Table:           "subscribers.subs_77",
		CompletedAt:     time.Date(2024, 7, 1, 13, 5, 9, 0, time.UTC),
		Attachments:     []string{out, filepath.Join(dir, "missing.csv")},
	})
	require.NoError(t, err)

	msg := sender.sent()[0]
	assert.Equal(t, "Subscriber Processing Results - Org 77, Period 2024-06-30", msg.Subject)
	assert.Equal(t, []string{"admin@example.com"}, msg.To)
	assert.Empty(t, msg.BCC)
	assert.Contains(t, msg.Body, "completed successfully for Org 77.")
	assert.Contains(t, msg.Body, "Total Rows Processed: 10")
	assert.Contains(t, msg.Body, "VoIP Lines Included: Yes")
	assert.Contains(t, msg.Body, "  - 77_data.csv (5 bytes)\n")
	assert.NotContains(t, msg.Body, "missing.csv")
	assert.Contains(t, msg.Body, "Database Table: subscribers.subs_77")
	assert.Contains(t, msg.Body, "Processing completed at: 07/01/2024, 13:05:09")
}

func TestNotifier_UpstreamResults(t *testing.T) {
	n, smtp := testConfig()
	notifier, sender := newNotifier(t, n, smtp)
	ctx := context.Background()

	require.NoError(t, notifier.UpstreamResults(ctx, UpstreamReport{
		ISP: "77", Period: "2024-06-30", Verdict: VerdictValid, File: "in.csv",
	}))
	require.NoError(t, notifier.UpstreamResults(ctx, UpstreamReport{
		ISP: "77", Period: "2024-06-30", Verdict: VerdictInvalid, ExitCode: 1, File: "in.csv",
		Reason: "bad rows", Stdout: "out text", Stderr: "err text",
	}))

	msgs := sender.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Upstream Validation Results - Org 77, Period 2024-06-30", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "File Status: VALID")
	assert.NotContains(t, msgs[0].Body, "STDOUT")

	assert.Contains(t, msgs[1].Body, "File Status: INVALID")
	assert.Contains(t, msgs[1].Body, "Reason: bad rows")
	assert.Contains(t, msgs[1].Body, outputRule+"\nSTDOUT\n"+outputRule+"\nout text")
	assert.Contains(t, msgs[1].Body, "err text")
}

func TestNotifier_SettingsFailureWarnsOnce(t *testing.T) {
	n, smtp := testConfig()
	n.SettingsFile = filepath.Join(t.TempDir(), "missing.json")
	notifier, sender := newNotifier(t, n, smtp)
	ctx := context.Background()
	rcpt := Recipient{Email: "filer@example.com", Name: "Pat"}

	require.NoError(t, notifier.Success(ctx, rcpt, "77", nil))
	require.NoError(t, notifier.SystemError(ctx, rcpt, "77"))

	msgs := sender.sent()
	require.Len(t, msgs, 3)
	assert.Equal(t, "WARNING: Email Config Error - validate-subscription", msgs[0].Subject)
	assert.Equal(t, []string{"admin@example.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].Body, "Email WAS SENT to filer@example.com using hard-coded defaults")
	assert.Contains(t, msgs[0].Body, "File: "+n.SettingsFile)
	assert.Equal(t, "FCC BDC Subscriber File Successfully Processed (77)", msgs[1].Subject)
	assert.Equal(t, "Subscriber File Processing Error", msgs[2].Subject)
}

func TestNotifier_SendFailure(t *testing.T) {
	n, smtp := testConfig()
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("relay down"))
	notifier := New(sender, n, smtp, discard())

	err := notifier.SystemError(context.Background(), Recipient{Email: "filer@example.com"}, "77")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotification))
	assert.ErrorContains(t, err, "relay down")

	err = notifier.Success(context.Background(), Recipient{}, "77", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotification))
}

func TestResolvers(t *testing.T) {
	ctx := context.Background()

	r := NewLookupResolver(fakeUsers{user: store.User{Email: "u@example.com"}}, "Customer", discard())
	rcpt, err := r.Resolve(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, Recipient{Email: "u@example.com", Name: "Customer"}, rcpt)

	notFound := apperrors.NewNotFoundError("user for org 77")
	_, err = NewLookupResolver(fakeUsers{err: notFound}, "Customer", discard()).Resolve(ctx, "77")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	o := NewOverrideResolver("up@example.com", fakeUsers{user: store.User{Email: "u@example.com", Name: "Pat"}}, "Customer", discard())
	rcpt, err = o.Resolve(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, Recipient{Email: "up@example.com", Name: "Pat"}, rcpt)

	o = NewOverrideResolver("up@example.com", fakeUsers{err: notFound}, "Customer", discard())
	rcpt, err = o.Resolve(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, "Customer", rcpt.Name)
}

func TestSMTPSender_Build(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 465}, discard())

	attach := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(attach, []byte("x"), 0o600))

	m, err := s.build(Message{
		From:        "from@example.com",
		To:          []string{"to@example.com"},
		BCC:         []string{"b@example.com"},
		Subject:     "hello",
		Body:        "body",
		Attachments: []string{attach, "/nonexistent/file.csv"},
	})
	require.NoError(t, err)
	assert.Len(t, m.GetAttachments(), 1)
	assert.Equal(t, []string{"hello"}, m.GetGenHeader(mail.HeaderSubject))

	_, err = s.build(Message{From: "not an address", To: []string{"to@example.com"}})
	assert.Error(t, err)
}
