package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bdcsubs/internal/config"
)

// Settings is the addressing used for every outgoing message
type Settings struct {
	FromAddress string
	AdminEmail  string
	BCC         []string
	SMTPUser    string
}

// settingsFile mirrors the JSON settings file shared with the other
// filing tools
type settingsFile struct {
	FromAddress  *string `json:"from_address"`
	AdminEmail   *string `json:"admin_email"`
	BCCAddresses *string `json:"bcc_addresses"`
	SMTPUser     *string `json:"smtp_user"`
}

// DefaultSettings builds settings from the static configuration
func DefaultSettings(n config.NotificationConfig, smtp config.SMTPConfig) Settings {
	s := Settings{
		FromAddress: n.FromAddress,
		AdminEmail:  n.AdminEmail,
		BCC:         append([]string{}, n.BCC...),
		SMTPUser:    smtp.User,
	}
	if s.FromAddress == "" {
		s.FromAddress = smtp.User
	}
	s.BCC = withAdmin(s.BCC, s.AdminEmail)
	return s
}

// LoadSettings reads the JSON settings file at path. Every key is required.
// On any failure the defaults are returned together with the error so mail
// still goes out and the caller can raise the alarm.
func LoadSettings(path string, defaults Settings) (Settings, error) {
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("email settings file %s: %w", path, err)
	}

	var raw settingsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return defaults, fmt.Errorf("invalid JSON in email settings file %s: %w", path, err)
	}

	var missing []string
	if raw.FromAddress == nil {
		missing = append(missing, "from_address")
	}
	if raw.AdminEmail == nil {
		missing = append(missing, "admin_email")
	}
	if raw.BCCAddresses == nil {
		missing = append(missing, "bcc_addresses")
	}
	if raw.SMTPUser == nil {
		missing = append(missing, "smtp_user")
	}
	if len(missing) > 0 {
		return defaults, fmt.Errorf("missing required fields in email settings file %s: %s", path, strings.Join(missing, ", "))
	}

	s := Settings{
		FromAddress: *raw.FromAddress,
		AdminEmail:  *raw.AdminEmail,
		SMTPUser:    *raw.SMTPUser,
	}
	for _, addr := range strings.Split(*raw.BCCAddresses, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			s.BCC = append(s.BCC, addr)
		}
	}
	s.BCC = withAdmin(s.BCC, defaults.AdminEmail)
	return s, nil
}

// withAdmin appends admin to bcc unless it is already there
func withAdmin(bcc []string, admin string) []string {
	if admin == "" {
		return bcc
	}
	for _, b := range bcc {
		if strings.EqualFold(b, admin) {
			return bcc
		}
	}
	return append(bcc, admin)
}
